// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

// Discovery is the result of a manifest discovery on a document.
type Discovery struct {
	Href     string    `json:"href,omitempty"`
	Manifest *Manifest `json:"manifest,omitempty"`
}

// IsEmpty returns true when neither a link nor a manifest were found.
func (d *Discovery) IsEmpty() bool {
	return d == nil || d.Href == "" && d.Manifest == nil
}

// Link returns the resolved href of the document's first
// <link rel="manifest"> element, or an empty string.
func Link(d *document.Document) string {
	for _, n := range d.QueryAll("//link[@rel][@href]") {
		for _, rel := range document.Tokens(n, "rel") {
			if rel != "manifest" {
				continue
			}
			href, _ := document.Attr(n, "href")
			if strings.TrimSpace(href) == "" {
				continue
			}
			return d.Resolve(href)
		}
	}
	return ""
}

// Discover finds the document's manifest link. When data is not empty,
// it's parsed as the manifest JSON, with its URLs resolved against the
// manifest link, or the document base when there is no absolute link.
func Discover(d *document.Document, data string) (*Discovery, error) {
	res := &Discovery{Href: Link(d)}
	if strings.TrimSpace(data) == "" {
		return res, nil
	}

	base := d.Base()
	if u, err := url.Parse(res.Href); err == nil && u.IsAbs() {
		base = u
	}

	m, err := Parse(strings.NewReader(data), base)
	if err != nil {
		return nil, err
	}
	res.Manifest = m
	return res, nil
}

// maxManifestSize is the largest manifest Fetch accepts.
const maxManifestSize = 1 << 20

// Fetch retrieves and parses a manifest. Its URLs are resolved
// against its own location.
func Fetch(ctx context.Context, client *http.Client, href string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/manifest+json, application/json;q=0.9")

	rsp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close() //nolint:errcheck

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot fetch manifest %s: status %d", href, rsp.StatusCode)
	}

	base := req.URL
	if rsp.Request != nil {
		base = rsp.Request.URL
	}
	return Parse(io.LimitReader(rsp.Body, maxManifestSize), base)
}
