// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/pkg/extract"
	. "codeberg.org/readeck/metaextract/pkg/extract/testing" //revive:disable:dot-imports
)

func TestFetchPage(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://x.test/page",
		NewHTMLResponder(200, `<html><head><title>Page</title></head><body><p>ok</p></body></html>`))
	httpmock.RegisterResponder("GET", "https://x.test/latin1",
		NewContentResponder(200, map[string]string{"content-type": "text/html"},
			"<html><head><meta charset=\"iso-8859-1\"><title>caf\xe9</title></head><body></body></html>"))
	httpmock.RegisterResponder("GET", "https://x.test/header-charset",
		NewContentResponder(200, map[string]string{"content-type": "text/html; charset=windows-1252"},
			"<html><head><title>na\xefve</title></head><body></body></html>"))
	httpmock.RegisterResponder("GET", "https://x.test/image",
		NewContentResponder(200, map[string]string{"content-type": "text/html"},
			"\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"))
	httpmock.RegisterResponder("GET", "https://x.test/404",
		NewHTMLResponder(404, `<html><body>not found</body></html>`))
	httpmock.RegisterResponder("GET", "https://x.test/error",
		httpmock.NewErrorResponder(errors.New("HTTP")))
	httpmock.RegisterResponder("GET", "https://x.test/ioerror",
		NewIOErrorResponder(200, map[string]string{"content-type": "text/html"}))
	httpmock.RegisterResponder("GET", "https://x.test/big",
		NewHTMLResponder(200, `<html><head><title>A long title</title></head></html>`))

	t.Run("ok", func(t *testing.T) {
		tests := []struct {
			src      string
			expected string
		}{
			{"https://x.test/page", `<html><head><title>Page</title></head><body><p>ok</p></body></html>`},
			{"https://x.test/latin1", `<html><head><meta charset="iso-8859-1"><title>café</title></head><body></body></html>`},
			{"https://x.test/header-charset", `<html><head><title>naïve</title></head><body></body></html>`},
		}

		for i, test := range tests {
			t.Run(strconv.Itoa(i+1), func(t *testing.T) {
				assert := require.New(t)
				page, err := extract.FetchPage(context.Background(), nil, test.src, 0)
				assert.NoError(err)
				assert.Equal(test.src, page.URL)
				assert.Equal(test.expected, page.HTML)
				assert.Contains(page.ContentType, "text/html")
			})
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			src      string
			expected error
			msg      string
		}{
			{"https://x.test/404", extract.ErrFetch, "cannot fetch document: invalid response status (404)"},
			{"https://x.test/error", extract.ErrFetch, `cannot fetch document: Get "https://x.test/error": HTTP`},
			{"https://x.test/ioerror", extract.ErrFetch, "cannot fetch document: read error"},
			{"https://x.test/image", extract.ErrNotHTML, "document is not HTML (image/png)"},
		}

		for i, test := range tests {
			t.Run(strconv.Itoa(i+1), func(t *testing.T) {
				page, err := extract.FetchPage(context.Background(), nil, test.src, 0)
				require.Nil(t, page)
				require.ErrorIs(t, err, test.expected)
				require.EqualError(t, err, test.msg)
			})
		}
	})

	t.Run("max size", func(t *testing.T) {
		page, err := extract.FetchPage(context.Background(), nil, "https://x.test/big", 20)
		require.NoError(t, err)
		require.Equal(t, "<html><head><title>A", page.HTML)
	})
}

func TestFetchHeader(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://x.test/",
		func(req *http.Request) (*http.Response, error) {
			rsp := httpmock.NewStringResponse(200, req.Header.Get("User-Agent"))
			rsp.Request = req
			return rsp, nil
		})

	header := http.Header{}
	header.Set("User-Agent", "metaextract/test")
	ctx := extract.WithRequestHeader(context.Background(), header)

	h, ok := extract.CheckRequestHeader(ctx)
	require.True(t, ok)
	require.Equal(t, header, h)

	page, err := extract.FetchPage(ctx, nil, "https://x.test/", 0)
	require.NoError(t, err)
	require.Equal(t, "metaextract/test", page.HTML)
}
