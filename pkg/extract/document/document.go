// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package document provides a read-only access layer over a parsed
// HTML tree. Every metadata extractor reads the document through it.
package document

import (
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrInvalidText is returned when the input is not valid UTF-8.
	ErrInvalidText = errors.New("input is not valid UTF-8 text")

	// ErrInvalidURL is returned when a base URL can't be used.
	ErrInvalidURL = errors.New("invalid base URL")
)

// Document is a parsed HTML document with its optional base URL.
type Document struct {
	root *html.Node
	base *url.URL
	ids  map[string]*html.Node
}

// Parse parses an HTML text. An empty baseURL means the document
// has no base and relative URLs are left untouched.
func Parse(text string, baseURL string) (*Document, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}

	base, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	return FromNode(root, base), nil
}

// ParseBaseURL parses an absolute URL. It returns nil for an empty string.
func ParseBaseURL(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, s)
	}
	u.Fragment = ""
	return u, nil
}

// FromNode returns a [Document] for an already parsed tree.
// The document's first <base href> element, when it yields an
// absolute URL, replaces the given base.
func FromNode(root *html.Node, base *url.URL) *Document {
	d := &Document{
		root: root,
		base: base,
		ids:  map[string]*html.Node{},
	}

	hasBaseElement := false
	for n := range Elements(root) {
		if id, _ := Attr(n, "id"); id != "" {
			if _, ok := d.ids[id]; !ok {
				d.ids[id] = n
			}
		}

		if n.DataAtom == atom.Base && !hasBaseElement {
			if href, ok := Attr(n, "href"); ok {
				hasBaseElement = true
				d.setBaseElement(href)
			}
		}
	}

	return d
}

func (d *Document) setBaseElement(href string) {
	var u *url.URL
	var err error
	if d.base != nil {
		u, err = d.base.Parse(strings.TrimSpace(href))
	} else {
		u, err = url.Parse(strings.TrimSpace(href))
	}
	if err == nil && u.IsAbs() {
		u.Fragment = ""
		d.base = u
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Base returns a copy of the document's base URL, or nil.
func (d *Document) Base() *url.URL {
	if d.base == nil {
		return nil
	}
	u := *d.base
	return &u
}

// BaseString returns the document's base URL as a string.
func (d *Document) BaseString() string {
	if d.base == nil {
		return ""
	}
	return d.base.String()
}

// Resolve resolves a reference against the document's base.
// The reference is returned trimmed but otherwise unchanged when
// there is no base or when it can't be parsed.
func (d *Document) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if d.base == nil {
		return ref
	}
	u, err := d.base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// ByID returns the first element with the given id.
func (d *Document) ByID(id string) *html.Node {
	return d.ids[id]
}

// QueryAll returns all the elements matching an XPath expression.
// An invalid expression yields no results.
func (d *Document) QueryAll(expr string) []*html.Node {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// Query returns the first element matching an XPath expression.
func (d *Document) Query(expr string) *html.Node {
	n, err := htmlquery.Query(d.root, expr)
	if err != nil {
		return nil
	}
	return n
}

// Select returns the elements matching a CSS selector.
func (d *Document) Select(selector string) []*html.Node {
	return dom.QuerySelectorAll(d.root, selector)
}

// Children returns an iterator over the element children of a node.
func Children(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if n == nil {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && !yield(c) {
				return
			}
		}
	}
}

// Descendants returns a depth-first, document order iterator over
// every node under n. The node itself is not included.
func Descendants(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if n == nil {
			return
		}
		c := n.FirstChild
		for c != nil {
			if !yield(c) {
				return
			}
			if c.FirstChild != nil {
				c = c.FirstChild
				continue
			}
			for c != n && c.NextSibling == nil {
				c = c.Parent
			}
			if c == n {
				return
			}
			c = c.NextSibling
		}
	}
}

// Elements is like [Descendants] but only yields element nodes.
func Elements(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		for c := range Descendants(n) {
			if c.Type == html.ElementNode && !yield(c) {
				return
			}
		}
	}
}

// Attr returns an attribute value and whether it exists.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr returns true when the node carries the attribute.
func HasAttr(n *html.Node, name string) bool {
	_, ok := Attr(n, name)
	return ok
}

// ClassList returns the node's class names.
func ClassList(n *html.Node) []string {
	return strings.Fields(dom.GetAttribute(n, "class"))
}

// HasClass returns true when the node has the given class name.
func HasClass(n *html.Node, name string) bool {
	for c := range strings.FieldsSeq(dom.GetAttribute(n, "class")) {
		if c == name {
			return true
		}
	}
	return false
}

// TextContent returns the node's descendant text with whitespace
// runs collapsed to one space and trimmed. Script and style contents
// are left out.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return strings.Join(strings.Fields(n.Data), " ")
	}

	buf := new(strings.Builder)
	for c := range Descendants(n) {
		if c.Type != html.TextNode {
			continue
		}
		if p := c.Parent; p != nil && (p.DataAtom == atom.Script || p.DataAtom == atom.Style) {
			continue
		}
		buf.WriteString(c.Data)
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}

// RawText returns the node's descendant text, as is.
func RawText(n *html.Node) string {
	return dom.TextContent(n)
}

// InnerHTML returns the serialized content of a node.
func InnerHTML(n *html.Node) string {
	return dom.InnerHTML(n)
}

// IsElement returns true when n is an element of one of the given types.
func IsElement(n *html.Node, atoms ...atom.Atom) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, a := range atoms {
		if n.DataAtom == a {
			return true
		}
	}
	return false
}

// Tokens returns the lowercased, whitespace separated tokens
// of an attribute, as found in rel or type lists.
func Tokens(n *html.Node, name string) []string {
	v, _ := Attr(n, name)
	return strings.Fields(strings.ToLower(v))
}
