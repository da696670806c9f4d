// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

// valueRule says where an element's property value comes from.
type valueRule struct {
	attr     string
	resolve  bool
	withText bool
}

var valueRules = map[atom.Atom]valueRule{
	atom.Meta:   {attr: "content"},
	atom.Audio:  {attr: "src", resolve: true},
	atom.Embed:  {attr: "src", resolve: true},
	atom.Iframe: {attr: "src", resolve: true},
	atom.Img:    {attr: "src", resolve: true},
	atom.Source: {attr: "src", resolve: true},
	atom.Track:  {attr: "src", resolve: true},
	atom.Video:  {attr: "src", resolve: true},
	atom.A:      {attr: "href", resolve: true},
	atom.Area:   {attr: "href", resolve: true},
	atom.Link:   {attr: "href", resolve: true},
	atom.Object: {attr: "data", resolve: true},
	atom.Data:   {attr: "value"},
	atom.Meter:  {attr: "value"},
	atom.Time:   {attr: "datetime", withText: true},
}

type parser struct {
	doc *document.Document

	// items being built, to break itemref cycles
	building map[*html.Node]bool
}

func (p *parser) parse() Items {
	res := Items{}
	for n := range document.Elements(p.doc.Root()) {
		if !document.HasAttr(n, "itemscope") || document.HasAttr(n, "itemprop") {
			continue
		}
		if it := p.item(n); !it.IsEmpty() {
			res = append(res, it)
		}
	}
	return res
}

func (p *parser) item(n *html.Node) *Item {
	p.building[n] = true
	defer delete(p.building, n)

	it := newItem()
	if s, ok := document.Attr(n, "itemtype"); ok {
		for t := range strings.FieldsSeq(s) {
			it.Types = append(it.Types, p.doc.Resolve(t))
		}
	}
	if s, ok := document.Attr(n, "itemid"); ok && len(it.Types) > 0 {
		it.ID = strings.TrimSpace(s)
	}

	for _, prop := range p.properties(n) {
		v := p.value(prop)
		if v == nil {
			continue
		}
		names, _ := document.Attr(prop, "itemprop")
		for name := range strings.FieldsSeq(names) {
			it.Properties.Append(name, v)
		}
	}

	return it
}

// properties returns the property elements of an item: its subtree,
// without entering nested items, then every itemref target.
// An element is never listed twice.
func (p *parser) properties(root *html.Node) []*html.Node {
	seen := map[*html.Node]bool{root: true}
	res := []*html.Node{}

	var crawl func(n *html.Node)
	visit := func(n *html.Node) {
		seen[n] = true
		if document.HasAttr(n, "itemprop") {
			res = append(res, n)
		}
		if !document.HasAttr(n, "itemscope") {
			crawl(n)
		}
	}
	crawl = func(n *html.Node) {
		for c := range document.Children(n) {
			if !seen[c] {
				visit(c)
			}
		}
	}

	crawl(root)

	refs, _ := document.Attr(root, "itemref")
	for id := range strings.FieldsSeq(refs) {
		ref := p.doc.ByID(id)
		if ref == nil || seen[ref] || contains(ref, root) {
			continue
		}
		visit(ref)
	}

	return res
}

// value returns a property value: a nested item, or a string.
// It returns nil for an empty value or an item that's already
// being built.
func (p *parser) value(n *html.Node) any {
	if document.HasAttr(n, "itemscope") {
		if p.building[n] {
			return nil
		}
		return p.item(n)
	}

	var s string
	rule, ok := valueRules[n.DataAtom]
	switch {
	case !ok:
		s = document.TextContent(n)
	default:
		var found bool
		s, found = document.Attr(n, rule.attr)
		switch {
		case !found && rule.withText:
			s = document.TextContent(n)
		case found && rule.resolve:
			s = p.doc.Resolve(s)
		}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

// contains returns true when n is an ancestor of x, or x itself.
func contains(n, x *html.Node) bool {
	for ; x != nil; x = x.Parent {
		if x == n {
			return true
		}
	}
	return false
}
