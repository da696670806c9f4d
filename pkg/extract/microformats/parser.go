// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microformats

import (
	"iter"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

var (
	rxRoot     = regexp.MustCompile(`^h-[a-z0-9-]+$`)
	rxProperty = regexp.MustCompile(`^(p|u|dt|e)-([a-z0-9]+(?:-[a-z0-9]+)*)$`)
)

// property is a property class: its prefix (p, u, dt or e) and name.
type property struct {
	prefix string
	name   string
}

func parseProperty(class string) (property, bool) {
	m := rxProperty.FindStringSubmatch(class)
	if m == nil {
		return property{}, false
	}
	return property{m[1], m[2]}, true
}

type parser struct {
	doc *document.Document
}

// itemState is the parsing state of one item.
type itemState struct {
	item     *Item
	legacy   []string
	hasP     bool
	hasU     bool
	hasE     bool
	nested   bool
	lastDate string
}

func (st *itemState) add(p property, v any) {
	switch p.prefix {
	case "p":
		st.hasP = true
	case "u":
		st.hasU = true
	case "e":
		st.hasE = true
	}
	st.item.Properties.Append(p.name, v)
}

// rootTypes returns the h-* classes of an element, sorted and unique.
func rootTypes(n *html.Node) []string {
	res := []string{}
	for _, c := range document.ClassList(n) {
		if rxRoot.MatchString(c) {
			res = append(res, c)
		}
	}
	slices.Sort(res)
	return slices.Compact(res)
}

// legacyRoots returns the classic root class names of an element.
func legacyRoots(n *html.Node) []string {
	res := []string{}
	for _, c := range document.ClassList(n) {
		if _, ok := backcompatRoots[c]; ok && !slices.Contains(res, c) {
			res = append(res, c)
		}
	}
	return res
}

func isRoot(n *html.Node) bool {
	return len(rootTypes(n)) > 0 || len(legacyRoots(n)) > 0
}

// properties returns the property classes of an element. In a classic
// microformat, only the classic property names of its root are used.
func properties(n *html.Node, legacy []string) []property {
	res := []property{}
	for _, c := range document.ClassList(n) {
		var p property
		var ok bool
		if legacy == nil {
			p, ok = parseProperty(c)
		} else {
			for _, root := range legacy {
				if mapped, found := backcompatProperties[root][c]; found {
					p, ok = parseProperty(mapped)
					break
				}
			}
		}
		if ok && !slices.Contains(res, p) {
			res = append(res, p)
		}
	}
	return res
}

func (p *parser) findRoots(n *html.Node, res *Items) {
	for c := range document.Children(n) {
		if isRoot(c) {
			*res = append(*res, p.item(c))
			continue
		}
		p.findRoots(c, res)
	}
}

func (p *parser) item(e *html.Node) *Item {
	st := &itemState{item: newItem()}
	st.item.Type = rootTypes(e)
	if len(st.item.Type) == 0 {
		st.legacy = legacyRoots(e)
		for _, c := range st.legacy {
			st.item.Type = append(st.item.Type, backcompatRoots[c])
		}
		slices.Sort(st.item.Type)
		st.item.Type = slices.Compact(st.item.Type)
	}

	p.walk(e, st)

	if st.legacy == nil {
		p.implied(e, st)
	}
	return st.item
}

// walk collects the properties found under n. It descends into property
// elements, but not into nested microformats.
func (p *parser) walk(n *html.Node, st *itemState) {
	for c := range document.Children(n) {
		props := properties(c, st.legacy)

		if isRoot(c) {
			st.nested = true
			child := p.item(c)
			if len(props) == 0 {
				st.item.Children = append(st.item.Children, child)
				continue
			}
			for _, prop := range props {
				x := *child
				x.Value, x.HTML = p.nestedValue(c, child, prop, st)
				st.add(prop, &x)
			}
			continue
		}

		for _, prop := range props {
			st.add(prop, p.propertyValue(c, prop, st))
		}
		p.walk(c, st)
	}
}

func (p *parser) propertyValue(n *html.Node, prop property, st *itemState) any {
	switch prop.prefix {
	case "u":
		return p.urlValue(n)
	case "dt":
		return p.dateValue(n, st)
	case "e":
		res := value.NewObject()
		res.Set("html", strings.TrimSpace(document.InnerHTML(n)))
		res.Set("value", document.TextContent(n))
		return res
	}
	return p.textValue(n)
}

// nestedValue returns the value and html of a microformat used
// as a property.
func (p *parser) nestedValue(n *html.Node, child *Item, prop property, st *itemState) (string, string) {
	switch prop.prefix {
	case "u":
		if v := child.First("url"); v != "" {
			return v, ""
		}
		return p.urlValue(n), ""
	case "dt":
		return p.dateValue(n, st), ""
	case "e":
		return document.TextContent(n), strings.TrimSpace(document.InnerHTML(n))
	}
	if v := child.First("name"); v != "" {
		return v, ""
	}
	return p.textValue(n), ""
}

// scan returns an iterator over the descendants of n, without entering
// nested microformats.
func scan(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		var walk func(*html.Node) bool
		walk = func(n *html.Node) bool {
			for c := range document.Children(n) {
				if isRoot(c) {
					continue
				}
				if !yield(c) || !walk(c) {
					return false
				}
			}
			return true
		}
		walk(n)
	}
}

// onlyChild returns the single element child of n, when it's not
// a microformat.
func onlyChild(n *html.Node) *html.Node {
	var res *html.Node
	for c := range document.Children(n) {
		if res != nil {
			return nil
		}
		res = c
	}
	if res != nil && isRoot(res) {
		return nil
	}
	return res
}

// single returns the only descendant matching fn.
func single(n *html.Node, fn func(*html.Node) bool) *html.Node {
	var res *html.Node
	for c := range scan(n) {
		if !fn(c) {
			continue
		}
		if res != nil {
			return nil
		}
		res = c
	}
	return res
}

// chain returns the first value found by fn on n, its only child
// or its only grandchild.
func chain(n *html.Node, fn func(*html.Node) (string, bool)) (string, bool) {
	if v, ok := fn(n); ok {
		return v, true
	}
	for c, i := onlyChild(n), 0; c != nil && i < 2; c, i = onlyChild(c), i+1 {
		if v, ok := fn(c); ok {
			return v, true
		}
	}
	return "", false
}

func (p *parser) implied(e *html.Node, st *itemState) {
	it := st.item

	if !it.Has("name") && !st.hasP && !st.hasE && !st.nested {
		if v, ok := p.impliedName(e); ok {
			it.Properties.Append("name", v)
		}
	}

	if !it.Has("photo") && !st.hasU {
		if v, ok := p.impliedPhoto(e); ok {
			it.Properties.Append("photo", v)
		}
	}

	if !it.Has("url") && !st.hasU {
		if v, ok := p.impliedURL(e); ok {
			it.Properties.Append("url", v)
		}
	}
}

func nameAttr(n *html.Node) (string, bool) {
	switch {
	case document.IsElement(n, atom.Img, atom.Area):
		return document.Attr(n, "alt")
	case document.IsElement(n, atom.Abbr):
		return document.Attr(n, "title")
	}
	return "", false
}

func (p *parser) impliedName(e *html.Node) (string, bool) {
	if v, ok := chain(e, nameAttr); ok {
		return strings.TrimSpace(v), true
	}

	for c := range scan(e) {
		if document.IsElement(c, atom.Img) {
			if v, ok := document.Attr(c, "alt"); ok {
				return strings.TrimSpace(v), true
			}
		}
	}

	if onlyText(e) {
		if v := document.TextContent(e); v != "" {
			return v, true
		}
	}
	return "", false
}

// onlyText returns true when n has no element child.
func onlyText(n *html.Node) bool {
	for range document.Children(n) {
		return false
	}
	return true
}

func photoAttr(n *html.Node) (string, bool) {
	switch {
	case document.IsElement(n, atom.Img):
		return document.Attr(n, "src")
	case document.IsElement(n, atom.Object):
		return document.Attr(n, "data")
	}
	return "", false
}

func (p *parser) impliedPhoto(e *html.Node) (string, bool) {
	if v, ok := chain(e, photoAttr); ok {
		return p.doc.Resolve(v), true
	}

	if document.TextContent(e) != "" {
		return "", false
	}
	img := single(e, func(n *html.Node) bool {
		return document.IsElement(n, atom.Img) && document.HasAttr(n, "src")
	})
	if img != nil {
		v, _ := document.Attr(img, "src")
		return p.doc.Resolve(v), true
	}
	return "", false
}

func linkAttr(n *html.Node) (string, bool) {
	if document.IsElement(n, atom.A, atom.Area) {
		return document.Attr(n, "href")
	}
	return "", false
}

func (p *parser) impliedURL(e *html.Node) (string, bool) {
	if v, ok := chain(e, linkAttr); ok {
		return p.doc.Resolve(v), true
	}

	link := single(e, func(n *html.Node) bool {
		_, ok := linkAttr(n)
		return ok
	})
	if link != nil {
		v, _ := linkAttr(link)
		return p.doc.Resolve(v), true
	}
	return "", false
}
