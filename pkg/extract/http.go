// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"

	"codeberg.org/readeck/metaextract/pkg/ctxr"
)

type ctxRequestHeaderKey struct{}

var (
	// WithRequestHeader returns a new context that contains the given [http.Header].
	WithRequestHeader = ctxr.Setter[http.Header](ctxRequestHeaderKey{})
	// CheckRequestHeader returns the [http.Header] of a given context.
	CheckRequestHeader = ctxr.Checker[http.Header](ctxRequestHeaderKey{})
)

var (
	// ErrFetch is returned when a document can't be retrieved.
	ErrFetch = errors.New("cannot fetch document")

	// ErrNotHTML is returned when a retrieved document is not HTML.
	ErrNotHTML = errors.New("document is not HTML")
)

// DefaultMaxSize is the largest document [FetchPage] reads.
const DefaultMaxSize = 8 << 20

// Fetch builds and performs a GET requests to a given URL.
// The request carries the context's header, if any.
func Fetch(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if header, ok := CheckRequestHeader(ctx); ok {
		req.Header = header.Clone()
	}

	return client.Do(req)
}

// Page is a retrieved HTML document.
type Page struct {
	// URL is the document's final URL, after redirects.
	URL string
	// HTML is the document, decoded to UTF-8.
	HTML string
	// ContentType is the content type the server sent.
	ContentType string
}

// FetchPage retrieves an HTML document and decodes it to UTF-8, using
// its declared or detected charset. It reads at most maxSize bytes,
// or [DefaultMaxSize] when maxSize is zero or less.
func FetchPage(ctx context.Context, client *http.Client, src string, maxSize int64) (*Page, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	rsp, err := Fetch(ctx, client, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer rsp.Body.Close() //nolint:errcheck

	if rsp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: invalid response status (%d)", ErrFetch, rsp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(rsp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	contentType := rsp.Header.Get("Content-Type")
	text, err := DecodePage(body, contentType)
	if err != nil {
		return nil, err
	}

	res := &Page{
		URL:         src,
		HTML:        text,
		ContentType: contentType,
	}
	if rsp.Request != nil && rsp.Request.URL != nil {
		res.URL = rsp.Request.URL.String()
	}
	return res, nil
}

// DecodePage checks that body is an HTML document and returns it
// decoded to UTF-8. The charset comes from contentType, a BOM or
// the document's meta tags, in that order.
func DecodePage(body []byte, contentType string) (string, error) {
	if err := checkHTML(body); err != nil {
		return "", err
	}

	enc, _, _ := charset.DetermineEncoding(body, contentType)
	text, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidText, err)
	}
	return string(text), nil
}

// checkHTML rejects content that's detected as neither HTML
// nor plain text.
func checkHTML(body []byte) error {
	mtype := mimetype.Detect(body)
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/html") || m.Is("application/xhtml+xml") || m.Is("text/plain") {
			return nil
		}
	}
	return fmt.Errorf("%w (%s)", ErrNotHTML, mtype.String())
}
