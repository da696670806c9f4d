// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package meta provides the attribute scrapers for meta tags, Open Graph,
// Twitter Cards, Dublin Core and rel links.
//
// All of them use the same approach: a list of rules, each made of an
// XPath selector and a function returning key/value pairs for every
// matching element. The pairs are then accumulated into a [value.Object].
package meta

import (
	"iter"
	"mime"
	"strings"

	"golang.org/x/net/html"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// mode is the accumulation mode of a rule.
type mode uint8

const (
	lastWins mode = iota
	firstWins
	list
)

type entry struct {
	key   string
	value any
	mode  mode
}

type rawSpec struct {
	selector string
	mode     mode
	fn       func(d *document.Document, n *html.Node, emit func(k string, v any))
}

// collect runs every rule and yields the resulting entries, in rule order
// then document order. Empty keys and values are dropped.
func collect(d *document.Document, specs []rawSpec) iter.Seq[entry] {
	return func(yield func(entry) bool) {
		for _, x := range specs {
			stop := false
			emit := func(k string, v any) {
				if stop {
					return
				}
				k = strings.TrimSpace(k)
				if s, ok := v.(string); ok {
					v = strings.TrimSpace(s)
				}
				if k == "" || value.IsEmpty(v) {
					return
				}
				stop = !yield(entry{key: k, value: v, mode: x.mode})
			}

			for _, n := range d.QueryAll(x.selector) {
				x.fn(d, n, emit)
				if stop {
					return
				}
			}
		}
	}
}

// put stores an entry in an object according to its mode.
func put(o *value.Object, e entry) {
	switch e.mode {
	case firstWins:
		o.SetDefault(e.key, e.value)
	case list:
		o.Append(e.key, e.value)
	default:
		o.Set(e.key, e.value)
	}
}

func extMeta(k, v string) func(*document.Document, *html.Node, func(string, any)) {
	return func(_ *document.Document, n *html.Node, emit func(string, any)) {
		name, _ := document.Attr(n, k)
		content, _ := document.Attr(n, v)
		emit(strings.ToLower(name), content)
	}
}

// Names that belong to other extractors.
var foreignPrefixes = []string{"og:", "twitter:", "dc.", "dcterms.", "article:", "fb:"}

var metaSpecs = []rawSpec{
	{"//title", firstWins, func(_ *document.Document, n *html.Node, emit func(string, any)) {
		emit("title", document.TextContent(n))
	}},
	{"//meta[@charset]", firstWins, func(_ *document.Document, n *html.Node, emit func(string, any)) {
		v, _ := document.Attr(n, "charset")
		emit("charset", strings.ToLower(v))
	}},
	{"//meta[@http-equiv][@content]", firstWins, func(_ *document.Document, n *html.Node, emit func(string, any)) {
		if h, _ := document.Attr(n, "http-equiv"); !strings.EqualFold(strings.TrimSpace(h), "content-type") {
			return
		}
		v, _ := document.Attr(n, "content")
		if _, params, err := mime.ParseMediaType(v); err == nil {
			emit("charset", strings.ToLower(params["charset"]))
		}
	}},
	{"/html[@lang]", firstWins, func(_ *document.Document, n *html.Node, emit func(string, any)) {
		v, _ := document.Attr(n, "lang")
		emit("lang", v)
	}},

	// Every named meta tag, keyed by name
	{"//meta[@name][@content]", lastWins, func(d *document.Document, n *html.Node, emit func(string, any)) {
		name, _ := document.Attr(n, "name")
		name = strings.ToLower(strings.TrimSpace(name))
		for _, p := range foreignPrefixes {
			if strings.HasPrefix(name, p) {
				return
			}
		}
		extMeta("name", "content")(d, n, emit)
	}},

	// Header links
	{"//link[@rel][@href]", firstWins, func(d *document.Document, n *html.Node, emit func(string, any)) {
		href, _ := document.Attr(n, "href")
		if strings.TrimSpace(href) == "" {
			return
		}
		href = d.Resolve(href)
		rels := document.Tokens(n, "rel")
		for _, rel := range rels {
			switch rel {
			case "canonical", "shortlink", "manifest", "prev", "next":
				emit(rel, href)
			case "apple-touch-icon", "apple-touch-icon-precomposed":
				emit("apple_touch_icon", href)
			case "icon":
				emit("icon", href)
			}
		}
	}},
	{"//link[@href][@rel]", list, func(d *document.Document, n *html.Node, emit func(string, any)) {
		if !hasToken(document.Tokens(n, "rel"), "alternate") {
			return
		}
		href, _ := document.Attr(n, "href")
		if strings.TrimSpace(href) == "" {
			return
		}
		typ, _ := document.Attr(n, "type")
		typ = strings.ToLower(strings.TrimSpace(typ))
		if strings.Contains(typ, "oembed") {
			return
		}

		link := value.NewObject()
		link.Set("href", d.Resolve(href))
		if strings.Contains(typ, "rss") || strings.Contains(typ, "atom") {
			setAttr(link, n, "title", "title")
			link.Set("type", typ)
			emit("feeds", link)
			return
		}

		setAttr(link, n, "hreflang", "hreflang")
		setAttr(link, n, "media", "media")
		if typ != "" {
			link.Set("type", typ)
		}
		emit("alternates", link)
	}},
}

// Meta returns the document's meta tags, keyed by their lowercased
// name, plus the page title, charset, language, and header links.
// It returns nil when nothing was found.
func Meta(d *document.Document) *value.Object {
	return gather(d, metaSpecs)
}

func setAttr(o *value.Object, n *html.Node, attr, key string) {
	if v, _ := document.Attr(n, attr); strings.TrimSpace(v) != "" {
		o.Set(key, strings.TrimSpace(v))
	}
}

func hasToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}
