// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package microdata provides an HTML microdata parser.
//
// It follows the W3C microdata model: each element with an itemscope
// attribute and no itemprop attribute is a top level item. An item's
// properties are found in its subtree, without entering nested items,
// and in the elements it references with itemref.
package microdata

import (
	"golang.org/x/net/html"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

// Parse returns the top level items of a document, in document order.
func Parse(doc *document.Document) Items {
	p := &parser{
		doc:      doc,
		building: map[*html.Node]bool{},
	}
	return p.parse()
}
