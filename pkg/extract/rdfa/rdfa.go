// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package rdfa extracts RDFa triples from an HTML document.
//
// It follows the RDFa Core 1.1 processing rules, with the HTML+RDFa
// additions (datetime literals, rel values ignored next to a property).
// Blank nodes are named _:b0, _:b1... in the order they're created.
// The document itself is the initial subject. It's the base URL,
// or an empty IRI reference when the document has none.
package rdfa

import (
	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

// Parse returns the triples of a document, in document order.
func Parse(doc *document.Document) Triples {
	p := &parser{
		doc:     doc,
		triples: Triples{},
		labels:  map[string]string{},
	}

	base := doc.BaseString()
	ctx := evalContext{
		parentSubject: base,
		parentObject:  base,
		lists:         newListMapping(),
		prefixes:      initialPrefixes,
	}

	for c := range document.Children(doc.Root()) {
		p.element(c, ctx)
	}
	p.flushLists(base, ctx.lists)

	return p.triples
}
