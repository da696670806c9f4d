// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package oembed discovers oEmbed endpoints declared by a document
// and fetches them.
package oembed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// Format is an oEmbed response format.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	XML  Format = "xml"
)

// Endpoint is a discovered oEmbed endpoint.
type Endpoint struct {
	Href   string `json:"href"`
	Format Format `json:"format"`
	Title  string `json:"title,omitempty"`
}

// Discovery holds every endpoint of a document, by format.
type Discovery struct {
	JSON []Endpoint `json:"json_endpoints,omitempty"`
	XML  []Endpoint `json:"xml_endpoints,omitempty"`
}

// Len returns the number of endpoints.
func (d *Discovery) Len() int {
	if d == nil {
		return 0
	}
	return len(d.JSON) + len(d.XML)
}

// Endpoints returns all the endpoints, JSON first.
func (d *Discovery) Endpoints() []Endpoint {
	if d == nil {
		return nil
	}
	res := make([]Endpoint, 0, d.Len())
	res = append(res, d.JSON...)
	return append(res, d.XML...)
}

// Discover returns the oEmbed endpoints declared by
// <link rel="alternate" type="...+oembed"> elements.
// It returns nil when there are none.
func Discover(d *document.Document) *Discovery {
	res := &Discovery{}
	for _, n := range d.Select("link[rel][type][href]") {
		if !contains(document.Tokens(n, "rel"), "alternate") {
			continue
		}
		typ, _ := document.Attr(n, "type")
		typ = strings.ToLower(typ)
		if !strings.Contains(typ, "oembed") {
			continue
		}
		href, _ := document.Attr(n, "href")
		if strings.TrimSpace(href) == "" {
			continue
		}

		e := Endpoint{Href: d.Resolve(href), Format: JSON}
		e.Title, _ = document.Attr(n, "title")
		e.Title = strings.TrimSpace(e.Title)
		if !strings.Contains(typ, "json") && strings.Contains(typ, "xml") {
			e.Format = XML
			res.XML = append(res.XML, e)
			continue
		}
		res.JSON = append(res.JSON, e)
	}

	if res.Len() == 0 {
		return nil
	}
	return res
}

// ErrResponse is returned when an endpoint response can't be used.
var ErrResponse = errors.New("invalid oEmbed response")

// maxResponseSize is the maximum accepted response size.
const maxResponseSize = 1 << 20

// Fetch retrieves an oEmbed endpoint and returns its response,
// keeping the member order.
func Fetch(ctx context.Context, client *http.Client, e Endpoint) (*value.Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.Href, nil)
	if err != nil {
		return nil, err
	}
	if e.Format == XML {
		req.Header.Set("Accept", "text/xml, application/xml")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	rsp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close() //nolint:errcheck

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrResponse, rsp.StatusCode)
	}

	format := e.Format
	if mt, _, err := mime.ParseMediaType(rsp.Header.Get("Content-Type")); err == nil {
		switch {
		case strings.HasSuffix(mt, "json"):
			format = JSON
		case strings.HasSuffix(mt, "xml"):
			format = XML
		}
	}

	body := io.LimitReader(rsp.Body, maxResponseSize)
	if format == XML {
		return decodeXML(body)
	}
	return decodeJSON(body)
}

func decodeJSON(r io.Reader) (*value.Object, error) {
	v, err := value.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponse, err)
	}
	o, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("%w: not an object", ErrResponse)
	}
	return o, nil
}

// decodeXML converts an <oembed> document to an object. Numeric
// members are converted to numbers, as they would be in JSON.
func decodeXML(r io.Reader) (*value.Object, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponse, err)
	}
	root := xmlquery.FindOne(doc, "/oembed")
	if root == nil {
		return nil, fmt.Errorf("%w: no oembed element", ErrResponse)
	}

	res := value.NewObject()
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		text := strings.TrimSpace(n.InnerText())
		if _, err := strconv.ParseFloat(text, 64); err == nil && numericMembers[n.Data] {
			res.Set(n.Data, json.Number(text))
			continue
		}
		res.Set(n.Data, text)
	}
	return res, nil
}

var numericMembers = map[string]bool{
	"width":            true,
	"height":           true,
	"thumbnail_width":  true,
	"thumbnail_height": true,
	"cache_age":        true,
}

func contains(tokens []string, s string) bool {
	for _, t := range tokens {
		if t == s {
			return true
		}
	}
	return false
}
