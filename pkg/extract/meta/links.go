// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package meta

import (
	"strings"

	"golang.org/x/net/html"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

var dcPrefixes = []string{"dc.", "dcterms."}

var dcSpecs = []rawSpec{
	{"//meta[@name][@content]", lastWins, func(_ *document.Document, n *html.Node, emit func(string, any)) {
		name, _ := document.Attr(n, "name")
		name = strings.ToLower(strings.TrimSpace(name))
		for _, p := range dcPrefixes {
			if k, ok := strings.CutPrefix(name, p); ok {
				v, _ := document.Attr(n, "content")
				emit(k, v)
				return
			}
		}
	}},
}

var relSpecs = []rawSpec{
	{"//*[self::link or self::a or self::area][@rel][@href]", list, func(d *document.Document, n *html.Node, emit func(string, any)) {
		href, _ := document.Attr(n, "href")
		if strings.TrimSpace(href) == "" {
			return
		}
		href = d.Resolve(href)
		for _, rel := range document.Tokens(n, "rel") {
			emit(rel, href)
		}
	}},
}

// DublinCore returns the document's Dublin Core elements. Names are
// matched case insensitively on the "DC." and "DCTERMS." prefixes and
// stored lowercased, without prefix.
func DublinCore(d *document.Document) *value.Object {
	return gather(d, dcSpecs)
}

// RelLinks groups the href of every link, a and area element by each
// of its rel tokens. URLs are resolved and listed in document order.
func RelLinks(d *document.Document) *value.Object {
	return gather(d, relSpecs)
}

func gather(d *document.Document, specs []rawSpec) *value.Object {
	res := value.NewObject()
	for e := range collect(d, specs) {
		put(res, e)
	}
	if res.Len() == 0 {
		return nil
	}
	return res
}
