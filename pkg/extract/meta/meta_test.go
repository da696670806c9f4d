// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package meta_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/meta"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

func parse(t *testing.T, src, base string) *document.Document {
	t.Helper()
	d, err := document.Parse(src, base)
	require.NoError(t, err)
	return d
}

func toJSON(t *testing.T, o *value.Object) string {
	t.Helper()
	require.NotNil(t, o)
	data, err := value.Marshal(o)
	require.NoError(t, err)
	return string(data)
}

func TestMeta(t *testing.T) {
	t.Run("values", func(t *testing.T) {
		d := parse(t, `<html lang="en"><head>
			<meta charset="UTF-8">
			<title> Hello
			  world </title>
			<title>Other</title>
			<meta name="Description" content="first">
			<meta name="description" content="second">
			<meta name="keywords" content="a, b, c">
			<meta name="og:title" content="x">
			<meta name="twitter:card" content="summary">
			<meta name="DC.title" content="dc">
			<link rel="canonical" href="/page">
			<link rel="shortcut icon" href="/favicon.ico">
			<link rel="alternate" type="application/rss+xml" title="Feed" href="/feed.xml">
			<link rel="alternate" hreflang="fr" href="/fr/">
			<link rel="alternate" type="application/json+oembed" href="/oembed">
		</head></html>`, "https://example.org/a/")

		require.Equal(t,
			`{"title":"Hello world","charset":"utf-8","lang":"en",`+
				`"description":"second","keywords":"a, b, c",`+
				`"canonical":"https://example.org/page","icon":"https://example.org/favicon.ico",`+
				`"feeds":[{"href":"https://example.org/feed.xml","title":"Feed","type":"application/rss+xml"}],`+
				`"alternates":[{"href":"https://example.org/fr/","hreflang":"fr"}]}`,
			toJSON(t, meta.Meta(d)),
		)
	})

	t.Run("http-equiv charset", func(t *testing.T) {
		d := parse(t, `<meta http-equiv="Content-Type" content="text/html; charset=ISO-8859-1">`, "")
		require.Equal(t, `{"charset":"iso-8859-1"}`, toJSON(t, meta.Meta(d)))
	})

	t.Run("empty", func(t *testing.T) {
		d := parse(t, `<p>nothing</p><meta name="robots" content="  ">`, "")
		require.Nil(t, meta.Meta(d))
	})
}

func TestOpenGraph(t *testing.T) {
	t.Run("nesting", func(t *testing.T) {
		d := parse(t, `<head>
			<meta property="og:title" content="Title">
			<meta property="og:image" content="/a.png">
			<meta property="og:image:width" content="300">
			<meta property="og:image" content="/b.png">
			<meta property="og:image:alt" content="B">
			<meta property="og:locale" content="en_US">
			<meta property="og:locale:alternate" content="fr_FR">
			<meta property="og:locale:alternate" content="de_DE">
			<meta property="article:published_time" content="2024-01-02">
			<meta property="og:description" content="">
		</head>`, "https://x.test/")

		require.Equal(t,
			`{"title":"Title","image":{"url":"https://x.test/b.png","alt":"B"},`+
				`"locale":"en_US","locale_alternate":["fr_FR","de_DE"],`+
				`"article":{"published_time":"2024-01-02"},`+
				`"images":[{"url":"https://x.test/a.png","width":"300"},{"url":"https://x.test/b.png","alt":"B"}]}`,
			toJSON(t, meta.OpenGraph(d)),
		)
	})

	t.Run("last write wins", func(t *testing.T) {
		d := parse(t, `<meta property="og:title" content="one"><meta name="og:title" content="two">`, "")
		require.Equal(t, `{"title":"two"}`, toJSON(t, meta.OpenGraph(d)))
	})

	t.Run("absent", func(t *testing.T) {
		d := parse(t, `<meta name="description" content="x">`, "")
		require.Nil(t, meta.OpenGraph(d))
	})
}

func TestTwitter(t *testing.T) {
	src := `<head>
		<meta name="twitter:card" content="summary_large_image">
		<meta name="twitter:image" content="/t.png">
		<meta name="twitter:image:alt" content="Alt">
		<meta property="twitter:site" content="@site">
		<meta name="twitter:label1" value="Reading time">
	</head>`

	t.Run("values", func(t *testing.T) {
		d := parse(t, src, "https://x.test/")
		require.Equal(t,
			`{"card":"summary_large_image","image":{"url":"https://x.test/t.png","alt":"Alt"},"site":"@site","label1":"Reading time"}`,
			toJSON(t, meta.Twitter(d)),
		)
	})

	t.Run("absent", func(t *testing.T) {
		d := parse(t, `<meta property="og:title" content="x">`, "")
		require.Nil(t, meta.Twitter(d))
	})

	t.Run("fallback", func(t *testing.T) {
		d := parse(t, `<head>
			<meta name="twitter:card" content="summary">
			<meta name="twitter:title" content="Card title">
			<meta property="og:title" content="OG title">
			<meta property="og:description" content="OG description">
			<meta property="og:image" content="/i.png">
			<meta property="og:image:width" content="10">
		</head>`, "https://x.test/")

		res := meta.TwitterFallback(meta.Twitter(d), meta.OpenGraph(d))
		require.Equal(t,
			`{"card":"summary","title":"Card title","description":"OG description","image":"https://x.test/i.png"}`,
			toJSON(t, res),
		)
	})

	t.Run("fallback nothing", func(t *testing.T) {
		require.Nil(t, meta.TwitterFallback(nil, nil))

		og := value.NewObject()
		og.Set("type", "website")
		require.Nil(t, meta.TwitterFallback(nil, og))
	})
}

func TestDublinCore(t *testing.T) {
	d := parse(t, `<head>
		<meta name="DC.Title" content="T">
		<meta name="dcterms.creator" content="C">
		<meta name="dc.title" content="T2">
		<meta name="description" content="no">
	</head>`, "")
	require.Equal(t, `{"title":"T2","creator":"C"}`, toJSON(t, meta.DublinCore(d)))

	require.Nil(t, meta.DublinCore(parse(t, `<meta name="author" content="x">`, "")))
}

func TestRelLinks(t *testing.T) {
	t.Run("grouping", func(t *testing.T) {
		d := parse(t, `<head><link rel="canonical alternate" href="/p"></head>
			<body><a rel="Me" href="https://me.example/">me</a><a href="/no-rel">x</a>
			<a rel="me" href="/profile">profile</a><a rel="nofollow" href=" ">empty</a></body>`, "https://x.test/")

		require.Equal(t,
			`{"canonical":["https://x.test/p"],"alternate":["https://x.test/p"],"me":["https://me.example/","https://x.test/profile"]}`,
			toJSON(t, meta.RelLinks(d)),
		)
	})

	t.Run("absent", func(t *testing.T) {
		require.Nil(t, meta.RelLinks(parse(t, `<a href="/x">x</a>`, "")))
	})
}
