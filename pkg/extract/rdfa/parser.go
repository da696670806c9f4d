// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package rdfa

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

var datetimeTypes = []struct {
	rx       *regexp.Regexp
	datatype string
}{
	{regexp.MustCompile(`^-?\d{4,}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?$`), nsXSD + "dateTime"},
	{regexp.MustCompile(`^-?\d{4,}-\d{2}-\d{2}(Z|[+-]\d{2}:?\d{2})?$`), nsXSD + "date"},
	{regexp.MustCompile(`^\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?$`), nsXSD + "time"},
	{regexp.MustCompile(`^-?P(\d+Y)?(\d+M)?(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d+)?S)?)?$`), nsXSD + "duration"},
	{regexp.MustCompile(`^-?\d{4,}-\d{2}$`), nsXSD + "gYearMonth"},
	{regexp.MustCompile(`^-?\d{4,}$`), nsXSD + "gYear"},
}

type parser struct {
	doc     *document.Document
	triples Triples
	bnodes  int
	labels  map[string]string
}

func (p *parser) emit(subject, predicate string, object Term) {
	p.triples = append(p.triples, Triple{subject, predicate, object})
}

// blank returns a new blank node identifier.
func (p *parser) blank() string {
	id := "_:b" + strconv.Itoa(p.bnodes)
	p.bnodes++
	return id
}

// label returns the blank node of a "_:label" found in the document.
func (p *parser) label(name string) string {
	if id, ok := p.labels[name]; ok {
		return id
	}
	id := p.blank()
	p.labels[name] = id
	return id
}

// curie expands a CURIE. It fails on an unknown prefix.
func (p *parser) curie(ctx evalContext, s string) (string, bool) {
	prefix, ref, ok := strings.Cut(s, ":")
	if !ok {
		return "", false
	}
	switch prefix {
	case "_":
		return p.label(ref), true
	case "":
		return nsXHV + ref, true
	}
	if ns, ok := ctx.prefixes[strings.ToLower(prefix)]; ok {
		return ns + ref, true
	}
	return "", false
}

// term resolves the value of a typeof, property, rel, rev or datatype
// attribute: a CURIE, an absolute IRI or a term.
func (p *parser) term(ctx evalContext, s string) (string, bool) {
	if strings.Contains(s, ":") {
		if v, ok := p.curie(ctx, s); ok {
			return v, true
		}
		if isIRI(s) {
			return s, true
		}
		return "", false
	}
	if ctx.vocab != "" {
		return ctx.vocab + s, true
	}
	if v, ok := initialTerms[strings.ToLower(s)]; ok {
		return v, true
	}
	return "", false
}

// terms resolves a list of terms. Unresolvable ones are dropped.
func (p *parser) terms(ctx evalContext, s string, predicates bool) []string {
	res := []string{}
	for t := range strings.FieldsSeq(s) {
		v, ok := p.term(ctx, t)
		if !ok || (predicates && IRI(v).IsBlank()) {
			continue
		}
		res = append(res, v)
	}
	return res
}

// resource resolves the value of an about or resource attribute:
// a safe CURIE, a CURIE or an IRI reference.
func (p *parser) resource(ctx evalContext, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return p.curie(ctx, s[1:len(s)-1])
	}
	if v, ok := p.curie(ctx, s); ok {
		return v, true
	}
	return p.doc.Resolve(s), true
}

// attributes holds the RDFa attributes of an element.
type attributes struct {
	about, resource, href, src string
	hasAbout, hasResource      bool
	hasHref, hasSrc            bool
	types                      []string
	hasTypeof                  bool
	properties                 []string
	hasProperty                bool
	rels, revs                 []string
	hasRel, hasRev             bool
	content                    string
	hasContent                 bool
	datatype                   string
	hasDatatype                bool
	inlist                     bool
}

func (p *parser) attributes(n *html.Node, ctx evalContext) attributes {
	a := attributes{}
	if v, ok := document.Attr(n, "about"); ok {
		a.about, a.hasAbout = p.resource(ctx, v)
	}
	if v, ok := document.Attr(n, "resource"); ok {
		a.resource, a.hasResource = p.resource(ctx, v)
	}
	if v, ok := document.Attr(n, "href"); ok {
		a.href, a.hasHref = p.doc.Resolve(strings.TrimSpace(v)), true
	}
	if v, ok := document.Attr(n, "src"); ok {
		a.src, a.hasSrc = p.doc.Resolve(strings.TrimSpace(v)), true
	}
	if v, ok := document.Attr(n, "typeof"); ok {
		a.types, a.hasTypeof = p.terms(ctx, v, false), true
	}
	if v, ok := document.Attr(n, "property"); ok {
		a.properties, a.hasProperty = p.terms(ctx, v, true), true
	}
	a.content, a.hasContent = document.Attr(n, "content")
	if v, ok := document.Attr(n, "datatype"); ok {
		a.hasDatatype = true
		if v = strings.TrimSpace(v); v != "" {
			a.datatype, _ = p.term(ctx, v)
		}
	}
	a.inlist = document.HasAttr(n, "inlist")

	// With a property, rel and rev values that are plain HTML link
	// types are ignored.
	for _, x := range []struct {
		name  string
		dest  *[]string
		isSet *bool
	}{{"rel", &a.rels, &a.hasRel}, {"rev", &a.revs, &a.hasRev}} {
		v, ok := document.Attr(n, x.name)
		if !ok {
			continue
		}
		if a.hasProperty {
			tokens := []string{}
			for t := range strings.FieldsSeq(v) {
				if strings.Contains(t, ":") {
					tokens = append(tokens, t)
				}
			}
			if len(tokens) == 0 {
				continue
			}
			v = strings.Join(tokens, " ")
		}
		*x.dest, *x.isSet = p.terms(ctx, v, true), true
	}

	return a
}

// target returns the first of resource, href and src.
func (a attributes) target() (string, bool) {
	switch {
	case a.hasResource:
		return a.resource, true
	case a.hasHref:
		return a.href, true
	case a.hasSrc:
		return a.src, true
	}
	return "", false
}

func (p *parser) element(n *html.Node, parent evalContext) {
	ctx := parent.scoped(n, p.doc)
	a := p.attributes(n, ctx)

	var subject, object, typed string
	hasObject := false
	skip := false

	if !a.hasRel && !a.hasRev {
		if a.hasProperty && !a.hasContent && !a.hasDatatype {
			subject = parent.parentObject
			if a.hasAbout {
				subject = a.about
			}
			if a.hasTypeof {
				switch t, ok := a.target(); {
				case a.hasAbout:
					typed = a.about
				case ok:
					typed = t
				default:
					typed = p.blank()
				}
				object, hasObject = typed, true
			}
		} else {
			if t, ok := a.target(); a.hasAbout {
				subject = a.about
			} else if ok {
				subject = t
			} else if a.hasTypeof {
				subject = p.blank()
			} else {
				subject = parent.parentObject
				skip = !a.hasProperty
			}
			if a.hasTypeof {
				typed = subject
			}
		}
	} else {
		subject = parent.parentObject
		if a.hasAbout {
			subject = a.about
			if a.hasTypeof {
				typed = a.about
			}
		}
		if t, ok := a.target(); ok {
			object, hasObject = t, true
		} else if a.hasTypeof && !a.hasAbout {
			object, hasObject = p.blank(), true
		}
		if a.hasTypeof && !a.hasAbout {
			typed = object
		}
	}

	if typed != "" {
		for _, t := range a.types {
			p.emit(typed, rdfType, IRI(t))
		}
	}

	lists := parent.lists
	if subject != parent.parentObject {
		lists = newListMapping()
	}

	pending := []incomplete{}
	if hasObject {
		for _, r := range a.rels {
			if a.inlist {
				lists.add(r, IRI(object))
			} else {
				p.emit(subject, r, IRI(object))
			}
		}
		for _, r := range a.revs {
			p.emit(object, r, IRI(subject))
		}
	} else if len(a.rels)+len(a.revs) > 0 {
		for _, r := range a.rels {
			if a.inlist {
				lists.ensure(r)
				pending = append(pending, incomplete{r, inList})
			} else {
				pending = append(pending, incomplete{r, forward})
			}
		}
		for _, r := range a.revs {
			pending = append(pending, incomplete{r, backward})
		}
		object, hasObject = p.blank(), true
	}

	if a.hasProperty && len(a.properties) > 0 {
		v := p.propertyValue(n, ctx, a, typed)
		for _, prop := range a.properties {
			if a.inlist {
				lists.add(prop, v)
			} else {
				p.emit(subject, prop, v)
			}
		}
	}

	if !skip {
		for _, it := range parent.incomplete {
			switch it.dir {
			case forward:
				p.emit(parent.parentSubject, it.predicate, IRI(subject))
			case backward:
				p.emit(subject, it.predicate, IRI(parent.parentSubject))
			case inList:
				parent.lists.add(it.predicate, IRI(subject))
			}
		}
	}

	child := ctx
	child.lists = lists
	if !skip {
		child.parentSubject = subject
		child.parentObject = subject
		if hasObject {
			child.parentObject = object
		}
		child.incomplete = pending
	}
	for c := range document.Children(n) {
		p.element(c, child)
	}

	if lists != parent.lists {
		p.flushLists(subject, lists)
	}
}

// propertyValue returns the object of a property attribute.
func (p *parser) propertyValue(n *html.Node, ctx evalContext, a attributes, typed string) Term {
	text := func() string {
		if a.hasContent {
			return a.content
		}
		return document.TextContent(n)
	}

	switch {
	case a.datatype == rdfXMLLiteral || a.datatype == rdfHTML:
		v := a.content
		if !a.hasContent {
			v = strings.TrimSpace(document.InnerHTML(n))
		}
		return Term{Value: v, Literal: true, Datatype: a.datatype}
	case a.datatype != "":
		return Term{Value: text(), Literal: true, Datatype: a.datatype}
	case a.hasDatatype || a.hasContent:
		return Term{Value: text(), Literal: true, Language: ctx.lang}
	}

	if !a.hasRel && !a.hasRev {
		if t, ok := a.target(); ok {
			return IRI(t)
		}
	}
	if a.hasTypeof && !a.hasAbout && typed != "" {
		return IRI(typed)
	}

	if v, ok := document.Attr(n, "datetime"); ok {
		v = strings.TrimSpace(v)
		for _, x := range datetimeTypes {
			if x.rx.MatchString(v) {
				return Term{Value: v, Literal: true, Datatype: x.datatype}
			}
		}
		return Term{Value: v, Literal: true, Language: ctx.lang}
	}

	return Term{Value: document.TextContent(n), Literal: true, Language: ctx.lang}
}

// flushLists emits the RDF collections of a list mapping.
func (p *parser) flushLists(subject string, lists *listMapping) {
	for _, predicate := range lists.order {
		items := lists.items[predicate]
		if len(items) == 0 {
			p.emit(subject, predicate, IRI(rdfNil))
			continue
		}

		nodes := make([]string, len(items))
		for i := range items {
			nodes[i] = p.blank()
		}
		for i, item := range items {
			p.emit(nodes[i], rdfFirst, item)
			rest := rdfNil
			if i < len(items)-1 {
				rest = nodes[i+1]
			}
			p.emit(nodes[i], rdfRest, IRI(rest))
		}
		p.emit(subject, predicate, IRI(nodes[0]))
	}
}
