// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package rdfa

import (
	"encoding/json"
	"strings"

	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// Term is a triple's object. It's either a resource (an IRI or a blank
// node identifier) or a literal.
type Term struct {
	Value    string
	Literal  bool
	Language string
	Datatype string
}

// IRI returns a resource term.
func IRI(s string) Term {
	return Term{Value: s}
}

// IsBlank returns true when the term is a blank node.
func (t Term) IsBlank() bool {
	return !t.Literal && strings.HasPrefix(t.Value, "_:")
}

// MarshalJSON implements [json.Marshaler]. A resource is encoded as
// a string, a literal as an object.
func (t Term) MarshalJSON() ([]byte, error) {
	if !t.Literal {
		return json.Marshal(t.Value)
	}
	o := value.NewObject()
	o.Set("value", t.Value)
	if t.Language != "" {
		o.Set("language", t.Language)
	}
	if t.Datatype != "" {
		o.Set("datatype", t.Datatype)
	}
	return o.MarshalJSON()
}

// Triple is one subject, predicate, object statement.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Term   `json:"object"`
}

// Triples is a list of triples, in document order.
type Triples []Triple
