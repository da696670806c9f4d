// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract_test

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kinbiko/jsonassert"
	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/pkg/extract"
)

const page = `<!DOCTYPE html>
<html lang="en" prefix="og: http://ogp.me/ns#">
<head>
	<meta charset="utf-8">
	<title>A page</title>
	<meta name="description" content="About things">
	<meta name="DC.title" content="DC Title">
	<meta property="og:title" content="OG Title">
	<meta property="og:image" content="/img.png">
	<link rel="canonical" href="/page">
	<link rel="manifest" href="/app.webmanifest">
	<link rel="alternate" type="application/json+oembed" href="/oembed?format=json" title="oEmbed">
	<script type="application/ld+json">{"@context": "https://schema.org", "@type": "Article", "headline": "A page"}</script>
	<script type="application/ld+json">{not json</script>
</head>
<body>
	<div itemscope itemtype="https://schema.org/Person"><span itemprop="name">Ana</span></div>
	<div class="h-card"><img src="a.jpg" alt="Jo"></div>
	<div vocab="http://schema.org/" typeof="Person"><span property="name">Ana</span></div>
	<a rel="author me" href="/about">about</a>
</body>
</html>`

func TestAll(t *testing.T) {
	assert := require.New(t)

	res, err := extract.All(page, "https://x.test/")
	assert.NoError(err)

	assert.Equal([]extract.Format{
		extract.FormatMeta,
		extract.FormatOpenGraph,
		extract.FormatJSONLD,
		extract.FormatMicrodata,
		extract.FormatMicroformats,
		extract.FormatRDFa,
		extract.FormatDublinCore,
		extract.FormatManifest,
		extract.FormatOEmbed,
		extract.FormatRelLinks,
	}, res.Formats())
	assert.Nil(res.Twitter)
	assert.False(res.IsEmpty())

	assert.JSONEq(`{"title": "OG Title", "image": "https://x.test/img.png", "images": [{"url": "https://x.test/img.png"}]}`, string(res.OpenGraph))
	assert.JSONEq(`[{"@context": "https://schema.org", "@type": "Article", "headline": "A page"}]`, string(res.JSONLD))
	assert.JSONEq(`[{"type": ["https://schema.org/Person"], "properties": {"name": ["Ana"]}}]`, string(res.Microdata))
	assert.JSONEq(`[{"type": ["h-card"], "properties": {"name": ["Jo"], "photo": ["https://x.test/a.jpg"]}}]`, string(res.Microformats))
	assert.JSONEq(`{"title": "DC Title"}`, string(res.DublinCore))
	assert.JSONEq(`{"href": "https://x.test/app.webmanifest"}`, string(res.Manifest))
	assert.JSONEq(`{"json_endpoints": [{"href": "https://x.test/oembed?format=json", "format": "json", "title": "oEmbed"}]}`, string(res.OEmbed))

	ja := jsonassert.New(t)
	ja.Assertf(string(res.Meta), `{
		"title": "A page",
		"charset": "utf-8",
		"lang": "en",
		"description": "About things",
		"canonical": "https://x.test/page",
		"manifest": "https://x.test/app.webmanifest"
	}`)
	ja.Assertf(string(res.RelLinks), `{
		"canonical": ["https://x.test/page"],
		"manifest": ["https://x.test/app.webmanifest"],
		"alternate": ["https://x.test/oembed?format=json"],
		"author": ["https://x.test/about"],
		"me": ["https://x.test/about"]
	}`)

	var triples []map[string]any
	assert.NoError(json.Unmarshal(res.RDFa, &triples))
	// og:* meta tags are RDFa properties too
	assert.Len(triples, 4)
	assert.Equal("https://x.test/", triples[0]["subject"])
	assert.Equal("_:b0", triples[2]["subject"])

	// The result encoding only has the formats with data
	data, err := json.Marshal(res)
	assert.NoError(err)
	var keys map[string]json.RawMessage
	assert.NoError(json.Unmarshal(data, &keys))
	assert.Len(keys, 10)
	assert.NotContains(keys, "twitter")
}

func TestDeterminism(t *testing.T) {
	first, err := extract.All(page, "https://x.test/")
	require.NoError(t, err)
	expected, _ := json.Marshal(first)

	wg := sync.WaitGroup{}
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := extract.All(page, "https://x.test/")
			require.NoError(t, err)
			data, _ := json.Marshal(res)
			require.Equal(t, string(expected), string(data))
		}()
	}
	wg.Wait()
}

func TestIsolation(t *testing.T) {
	src := `
	<meta property="og:title" content="Still here">
	<div itemscope itemref="a b"><div id="a" itemprop="x" itemscope itemref="b"><div id="b" itemprop="y" itemscope itemref="a"></div></div></div>
	<div itemprop="orphan">no scope</div>
	<span property="unknown:term">?</span>
	<script type="application/ld+json">[1, 2</script>`

	res, err := extract.All(src, "")
	require.NoError(t, err)
	require.JSONEq(t, `{"title": "Still here"}`, string(res.OpenGraph))
	require.Nil(t, res.JSONLD)
	require.Nil(t, res.Twitter)
	require.Contains(t, string(res.RDFa), "http://ogp.me/ns#title")
	require.NotContains(t, string(res.RDFa), "unknown:term")
}

func TestOptions(t *testing.T) {
	t.Run("formats", func(t *testing.T) {
		assert := require.New(t)
		e := extract.New(extract.WithFormats(extract.FormatRelLinks, extract.FormatOpenGraph))
		assert.Equal([]extract.Format{extract.FormatOpenGraph, extract.FormatRelLinks}, e.Formats())

		res, err := e.Run(page, "https://x.test/")
		assert.NoError(err)
		assert.Equal([]extract.Format{extract.FormatOpenGraph, extract.FormatRelLinks}, res.Formats())
	})

	t.Run("twitter fallback", func(t *testing.T) {
		assert := require.New(t)
		src := `<meta name="twitter:card" content="summary">` +
			`<meta property="og:title" content="T"><meta property="og:description" content="D">`

		res, err := extract.All(src, "", extract.WithTwitterFallback(true))
		assert.NoError(err)
		assert.JSONEq(`{"card": "summary", "title": "T", "description": "D"}`, string(res.Twitter))

		data, err := extract.TwitterWithFallback(`<meta property="og:title" content="T">`, "")
		assert.NoError(err)
		assert.JSONEq(`{"title": "T"}`, string(data))

		data, err = extract.Twitter(`<meta property="og:title" content="T">`, "")
		assert.NoError(err)
		assert.Nil(data)
	})

	t.Run("manifest", func(t *testing.T) {
		assert := require.New(t)
		res, err := extract.All(page, "https://x.test/",
			extract.WithFormats(extract.FormatManifest),
			extract.WithManifestJSON(`{"name": "App", "icons": [{"src": "i.png"}]}`),
		)
		assert.NoError(err)
		assert.JSONEq(`{
			"href": "https://x.test/app.webmanifest",
			"manifest": {"name": "App", "icons": [{"src": "https://x.test/i.png"}]}
		}`, string(res.Manifest))

		// A broken manifest only leaves the link
		res, err = extract.All(page, "https://x.test/",
			extract.WithFormats(extract.FormatManifest),
			extract.WithManifestJSON(`{"name": `),
		)
		assert.NoError(err)
		assert.JSONEq(`{"href": "https://x.test/app.webmanifest"}`, string(res.Manifest))
	})

	t.Run("observer", func(t *testing.T) {
		assert := require.New(t)
		found := map[extract.Format]bool{}
		_, err := extract.All(page, "https://x.test/",
			extract.WithObserver(func(f extract.Format, elapsed time.Duration, ok bool, err error) {
				assert.NoError(err)
				assert.GreaterOrEqual(elapsed, time.Duration(0))
				found[f] = ok
			}),
		)
		assert.NoError(err)
		assert.Len(found, len(extract.Formats))
		assert.True(found[extract.FormatMeta])
		assert.False(found[extract.FormatTwitter])
	})
}

func TestFormatFunctions(t *testing.T) {
	tests := []struct {
		fn       func(string, string) ([]byte, error)
		expected string
	}{
		{extract.Meta, `{"title":"A page","charset":"utf-8","lang":"en","description":"About things","canonical":"https://x.test/page","manifest":"https://x.test/app.webmanifest"}`},
		{extract.OpenGraph, `{"title":"OG Title","image":"https://x.test/img.png","images":[{"url":"https://x.test/img.png"}]}`},
		{extract.Twitter, ``},
		{extract.JSONLD, `[{"@context":"https://schema.org","@type":"Article","headline":"A page"}]`},
		{extract.Microdata, `[{"type":["https://schema.org/Person"],"properties":{"name":["Ana"]}}]`},
		{extract.Microformats, `[{"type":["h-card"],"properties":{"name":["Jo"],"photo":["https://x.test/a.jpg"]}}]`},
		{
			extract.RDFa,
			`[{"subject":"https://x.test/","predicate":"http://ogp.me/ns#title","object":{"value":"OG Title","language":"en"}},` +
				`{"subject":"https://x.test/","predicate":"http://ogp.me/ns#image","object":{"value":"/img.png","language":"en"}},` +
				`{"subject":"_:b0","predicate":"http://www.w3.org/1999/02/22-rdf-syntax-ns#type","object":"http://schema.org/Person"},` +
				`{"subject":"_:b0","predicate":"http://schema.org/name","object":{"value":"Ana","language":"en"}}]`,
		},
		{extract.OEmbed, `{"json_endpoints":[{"href":"https://x.test/oembed?format=json","format":"json","title":"oEmbed"}]}`},
		{
			extract.RelLinks,
			`{"canonical":["https://x.test/page"],"manifest":["https://x.test/app.webmanifest"],` +
				`"alternate":["https://x.test/oembed?format=json"],"author":["https://x.test/about"],"me":["https://x.test/about"]}`,
		},
	}

	for i, test := range tests {
		t.Run(strconv.Itoa(i+1), func(t *testing.T) {
			data, err := test.fn(page, "https://x.test/")
			require.NoError(t, err)
			require.Equal(t, test.expected, string(data))
		})
	}

	t.Run("dublin core", func(t *testing.T) {
		data, err := extract.DublinCore(`<meta name="dcterms.Creator" content="Jo">`)
		require.NoError(t, err)
		require.Equal(t, `{"creator":"Jo"}`, string(data))
	})

	t.Run("manifest link", func(t *testing.T) {
		res, err := extract.Manifest(page, "https://x.test/")
		require.NoError(t, err)
		require.Equal(t, "https://x.test/app.webmanifest", res.Href)

		res, err = extract.Manifest("<p>nothing</p>", "")
		require.NoError(t, err)
		require.Nil(t, res)
	})

	t.Run("parse manifest", func(t *testing.T) {
		data, err := extract.ParseManifest(`{"name":"App","icons":[{"src":"/i.png"}]}`, "https://x.test/")
		require.NoError(t, err)
		require.Equal(t, `{"name":"App","icons":[{"src":"https://x.test/i.png"}]}`, string(data))
	})
}

func TestErrors(t *testing.T) {
	tests := []struct {
		fn       func() error
		expected error
		code     extract.Code
	}{
		{
			func() error { _, err := extract.All("", ""); return err },
			extract.ErrMissingInput, extract.CodeNullPointer,
		},
		{
			func() error { _, err := extract.All("<p>\xff</p>", ""); return err },
			extract.ErrInvalidText, extract.CodeInvalidUTF8,
		},
		{
			func() error { _, err := extract.All("<p>x</p>", "/relative"); return err },
			extract.ErrInvalidURL, extract.CodeInvalidURL,
		},
		{
			func() error { _, err := extract.Meta("", "https://x.test/"); return err },
			extract.ErrMissingInput, extract.CodeNullPointer,
		},
		{
			func() error { _, err := extract.ParseManifest("", ""); return err },
			extract.ErrMissingInput, extract.CodeNullPointer,
		},
		{
			func() error { _, err := extract.ParseManifest("[1, 2]", ""); return err },
			extract.ErrMalformedManifest, extract.CodeJSON,
		},
		{
			func() error { _, err := extract.ParseManifest(`{"name": `, ""); return err },
			extract.ErrMalformedManifest, extract.CodeJSON,
		},
		{
			func() error { _, err := extract.Manifest("\xfe", ""); return err },
			extract.ErrInvalidText, extract.CodeInvalidUTF8,
		},
	}

	for i, test := range tests {
		t.Run(strconv.Itoa(i+1), func(t *testing.T) {
			assert := require.New(t)
			err := test.fn()
			assert.ErrorIs(err, test.expected)
			assert.Equal(test.code, extract.CodeOf(err))

			var e *extract.Error
			assert.True(errors.As(err, &e))
		})
	}

	t.Run("codes", func(t *testing.T) {
		assert := require.New(t)
		assert.Equal(extract.CodeOK, extract.CodeOf(nil))
		assert.Equal(extract.CodeParse, extract.CodeOf(errors.New("other")))
		assert.Equal("invalid_utf8", extract.CodeInvalidUTF8.String())
		assert.Equal("code(42)", extract.Code(42).String())
		assert.Equal("NULL pointer passed as argument", extract.Message(extract.CodeNullPointer))
		assert.Equal("Memory allocation error", extract.Message(extract.CodeMemory))
		assert.Equal("Unknown error", extract.Message(extract.Code(-1)))
		assert.Equal(6, int(extract.CodeNullPointer))
	})
}

func TestParseFormat(t *testing.T) {
	assert := require.New(t)
	for _, f := range extract.Formats {
		x, err := extract.ParseFormat(string(f))
		assert.NoError(err)
		assert.Equal(f, x)
	}

	f, err := extract.ParseFormat(" Open-Graph ")
	assert.NoError(err)
	assert.Equal(extract.FormatOpenGraph, f)

	_, err = extract.ParseFormat("rss")
	assert.Error(err)
}

func TestVersion(t *testing.T) {
	require.Equal(t, "0.3.0", extract.Version())
}
