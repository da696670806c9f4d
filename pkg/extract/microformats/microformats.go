// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package microformats implements a microformats2 parser, with support
// for the classic microformats class names.
//
// Supported vocabularies are h-card, h-entry, h-event, h-review,
// h-review-aggregate, h-recipe, h-product, h-feed, h-adr and h-geo,
// but any h-* root is parsed.
package microformats

import (
	"slices"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// Item is a parsed microformat.
type Item struct {
	Type       []string
	Properties *value.Object
	Children   []*Item

	// Value and HTML are only set on items that are a property value.
	Value string
	HTML  string
}

// Items is a list of microformats.
type Items []*Item

func newItem() *Item {
	return &Item{Properties: value.NewObject()}
}

// Has returns true when the item has a property.
func (it *Item) Has(name string) bool {
	_, ok := it.Properties.Get(name)
	return ok
}

// Values returns a property's values.
func (it *Item) Values(name string) []any {
	v, _ := it.Properties.Get(name)
	l, _ := v.([]any)
	return l
}

// First returns a property's first value when it's a string.
func (it *Item) First(name string) string {
	for _, v := range it.Values(name) {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// toValue returns the item's JSON value.
func (it *Item) toValue() *value.Object {
	res := value.NewObject()
	types := make([]any, len(it.Type))
	for i, t := range it.Type {
		types[i] = t
	}
	res.Set("type", types)
	res.Set("properties", it.Properties)
	if it.Value != "" {
		res.Set("value", it.Value)
	}
	if it.HTML != "" {
		res.Set("html", it.HTML)
	}
	if len(it.Children) > 0 {
		children := make([]any, len(it.Children))
		for i, c := range it.Children {
			children[i] = c
		}
		res.Set("children", children)
	}
	return res
}

// MarshalJSON implements [json.Marshaler].
func (it *Item) MarshalJSON() ([]byte, error) {
	return it.toValue().MarshalJSON()
}

func (it *Item) walk(yield func(*Item) bool) bool {
	if !yield(it) {
		return false
	}
	for _, v := range it.Properties.All() {
		l, _ := v.([]any)
		for _, x := range l {
			if sub, ok := x.(*Item); ok && !sub.walk(yield) {
				return false
			}
		}
	}
	for _, c := range it.Children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// OfType returns every item, nested ones included, that has
// the given type.
func (items Items) OfType(t string) Items {
	res := Items{}
	for _, it := range items {
		it.walk(func(x *Item) bool {
			if slices.Contains(x.Type, t) {
				res = append(res, x)
			}
			return true
		})
	}
	return res
}

// Parse returns the top level microformats of a document,
// in document order.
func Parse(doc *document.Document) Items {
	p := &parser{doc: doc}
	res := Items{}
	p.findRoots(doc.Root(), &res)
	return res
}
