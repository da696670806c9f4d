// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"iter"
	"slices"

	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// Item is a microdata item. Its properties are lists of strings
// or nested [*Item], in document order.
type Item struct {
	Types      []string
	ID         string
	Properties *value.Object
}

// Items is a list of items.
type Items []*Item

func newItem() *Item {
	return &Item{Properties: value.NewObject()}
}

// IsEmpty returns true when the item has neither a type nor a property.
func (it *Item) IsEmpty() bool {
	return len(it.Types) == 0 && it.Properties.Len() == 0
}

// HasType returns true when the item has the given type.
func (it *Item) HasType(t string) bool {
	return slices.Contains(it.Types, t)
}

// Values returns the values of a property.
func (it *Item) Values(name string) []any {
	v, _ := it.Properties.Get(name)
	l, _ := v.([]any)
	return l
}

// First returns the first value of a property.
func (it *Item) First(name string) (any, bool) {
	if l := it.Values(name); len(l) > 0 {
		return l[0], true
	}
	return nil, false
}

// Value returns the item's JSON value.
func (it *Item) Value() *value.Object {
	res := value.NewObject()
	if len(it.Types) > 0 {
		types := make([]any, len(it.Types))
		for i, t := range it.Types {
			types[i] = t
		}
		res.Set("type", types)
	}
	if it.ID != "" {
		res.Set("id", it.ID)
	}
	res.Set("properties", it.Properties)
	return res
}

// MarshalJSON implements [json.Marshaler].
func (it *Item) MarshalJSON() ([]byte, error) {
	return it.Value().MarshalJSON()
}

func (it *Item) every(f func(*Item) bool, filter func(*Item) bool) bool {
	if filter == nil || filter(it) {
		if !f(it) {
			return false
		}
	}

	for _, v := range it.Properties.All() {
		l, _ := v.([]any)
		for _, x := range l {
			if sub, ok := x.(*Item); ok && !sub.every(f, filter) {
				return false
			}
		}
	}
	return true
}

// All returns a recursive iterator over all items, nested ones
// included, with a filter function (can be nil).
func (items Items) All(filter func(*Item) bool) iter.Seq[*Item] {
	return func(yield func(*Item) bool) {
		for _, it := range items {
			if !it.every(yield, filter) {
				break
			}
		}
	}
}
