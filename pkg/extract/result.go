// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"encoding/json"
)

// Result holds the JSON text of every format that produced data.
// A format without data is left empty and omitted from the result's
// JSON encoding.
type Result struct {
	Meta         json.RawMessage `json:"meta,omitempty"`
	OpenGraph    json.RawMessage `json:"open_graph,omitempty"`
	Twitter      json.RawMessage `json:"twitter,omitempty"`
	JSONLD       json.RawMessage `json:"json_ld,omitempty"`
	Microdata    json.RawMessage `json:"microdata,omitempty"`
	Microformats json.RawMessage `json:"microformats,omitempty"`
	RDFa         json.RawMessage `json:"rdfa,omitempty"`
	DublinCore   json.RawMessage `json:"dublin_core,omitempty"`
	Manifest     json.RawMessage `json:"manifest,omitempty"`
	OEmbed       json.RawMessage `json:"oembed,omitempty"`
	RelLinks     json.RawMessage `json:"rel_links,omitempty"`
}

func (r *Result) field(f Format) *json.RawMessage {
	switch f {
	case FormatMeta:
		return &r.Meta
	case FormatOpenGraph:
		return &r.OpenGraph
	case FormatTwitter:
		return &r.Twitter
	case FormatJSONLD:
		return &r.JSONLD
	case FormatMicrodata:
		return &r.Microdata
	case FormatMicroformats:
		return &r.Microformats
	case FormatRDFa:
		return &r.RDFa
	case FormatDublinCore:
		return &r.DublinCore
	case FormatManifest:
		return &r.Manifest
	case FormatOEmbed:
		return &r.OEmbed
	case FormatRelLinks:
		return &r.RelLinks
	}
	return nil
}

// Get returns a format's JSON text, or nil.
func (r *Result) Get(f Format) json.RawMessage {
	if p := r.field(f); p != nil {
		return *p
	}
	return nil
}

// Set sets a format's JSON text.
func (r *Result) Set(f Format, data json.RawMessage) {
	if p := r.field(f); p != nil {
		*p = data
	}
}

// Formats returns the formats that have data, in result order.
func (r *Result) Formats() []Format {
	res := []Format{}
	for _, f := range Formats {
		if len(r.Get(f)) > 0 {
			res = append(res, f)
		}
	}
	return res
}

// IsEmpty returns true when no format has data.
func (r *Result) IsEmpty() bool {
	return len(r.Formats()) == 0
}
