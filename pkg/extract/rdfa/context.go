// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package rdfa

import (
	"maps"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

const (
	nsRDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsXSD = "http://www.w3.org/2001/XMLSchema#"
	nsXHV = "http://www.w3.org/1999/xhtml/vocab#"

	rdfType  = nsRDF + "type"
	rdfFirst = nsRDF + "first"
	rdfRest  = nsRDF + "rest"
	rdfNil   = nsRDF + "nil"

	rdfXMLLiteral = nsRDF + "XMLLiteral"
	rdfHTML       = nsRDF + "HTML"
)

// initialPrefixes is the RDFa initial context.
var initialPrefixes = map[string]string{
	"rdf":     nsRDF,
	"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":     nsXSD,
	"owl":     "http://www.w3.org/2002/07/owl#",
	"rdfa":    "http://www.w3.org/ns/rdfa#",
	"schema":  "http://schema.org/",
	"foaf":    "http://xmlns.com/foaf/0.1/",
	"dc":      "http://purl.org/dc/terms/",
	"dcterms": "http://purl.org/dc/terms/",
	"dc11":    "http://purl.org/dc/elements/1.1/",
	"og":      "http://ogp.me/ns#",
	"xhv":     nsXHV,
	"cc":      "http://creativecommons.org/ns#",
	"sioc":    "http://rdfs.org/sioc/ns#",
	"skos":    "http://www.w3.org/2004/02/skos/core#",
	"void":    "http://rdfs.org/ns/void#",
	"vcard":   "http://www.w3.org/2006/vcard/ns#",
	"gr":      "http://purl.org/goodrelations/v1#",
}

// initialTerms are the terms usable without a vocabulary.
var initialTerms = map[string]string{
	"describedby": "http://www.w3.org/2007/05/powder-s#describedby",
	"license":     nsXHV + "license",
	"role":        nsXHV + "role",
}

type direction int

const (
	forward direction = iota
	backward
	inList
)

// incomplete is a relation waiting for its object (forward),
// its subject (backward), or a list item.
type incomplete struct {
	predicate string
	dir       direction
}

// listMapping accumulates the inlist values of a subject. It's shared
// by an element and its descendants, until one of them sets a new subject.
type listMapping struct {
	order []string
	items map[string][]Term
}

func newListMapping() *listMapping {
	return &listMapping{items: map[string][]Term{}}
}

func (l *listMapping) ensure(predicate string) {
	if _, ok := l.items[predicate]; !ok {
		l.order = append(l.order, predicate)
		l.items[predicate] = []Term{}
	}
}

func (l *listMapping) add(predicate string, t Term) {
	l.ensure(predicate)
	l.items[predicate] = append(l.items[predicate], t)
}

// evalContext is the evaluation context passed down the tree.
// It's passed by value. The prefix map is never modified in place,
// an element declaring prefixes gets a copy.
type evalContext struct {
	parentSubject string
	parentObject  string
	incomplete    []incomplete
	lists         *listMapping
	lang          string
	vocab         string
	prefixes      map[string]string
}

// scoped returns the context with the vocabulary, prefixes and language
// declared on n.
func (c evalContext) scoped(n *html.Node, d *document.Document) evalContext {
	if v, ok := document.Attr(n, "vocab"); ok {
		c.vocab = ""
		if v = strings.TrimSpace(v); v != "" {
			c.vocab = d.Resolve(v)
		}
	}

	declared := map[string]string{}
	for _, a := range n.Attr {
		if name, ok := strings.CutPrefix(a.Key, "xmlns:"); ok && a.Namespace == "" {
			declared[strings.ToLower(name)] = strings.TrimSpace(a.Val)
		}
	}
	if v, ok := document.Attr(n, "prefix"); ok {
		maps.Copy(declared, parsePrefixes(v))
	}
	delete(declared, "_")
	if len(declared) > 0 {
		c.prefixes = maps.Clone(c.prefixes)
		maps.Copy(c.prefixes, declared)
	}

	if v, ok := document.Attr(n, "xml:lang"); ok {
		c.lang = strings.TrimSpace(v)
	} else if v, ok := document.Attr(n, "lang"); ok {
		c.lang = strings.TrimSpace(v)
	}

	return c
}

// parsePrefixes parses a prefix attribute, a list of "name: IRI" pairs.
func parsePrefixes(s string) map[string]string {
	res := map[string]string{}
	fields := strings.Fields(s)
	for i := 0; i < len(fields)-1; i++ {
		name, ok := strings.CutSuffix(fields[i], ":")
		if !ok || name == "" || strings.Contains(name, ":") {
			continue
		}
		res[strings.ToLower(name)] = fields[i+1]
		i++
	}
	return res
}

// iriSchemes are the schemes of IRIs that have no authority.
var iriSchemes = map[string]bool{
	"urn": true, "mailto": true, "tel": true, "tag": true, "data": true,
}

// isIRI tells whether a term that is not a known CURIE is an IRI:
// an absolute IRI with an authority or a known scheme.
// Anything else is a CURIE with an unknown prefix.
func isIRI(s string) bool {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return false
	}
	return strings.Contains(s, "://") ||
		iriSchemes[strings.ToLower(u.Scheme)]
}
