// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microdata_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/microdata"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

func runParseHTML(src, base string, f func(t *testing.T, items microdata.Items)) func(t *testing.T) {
	return func(t *testing.T) {
		doc, err := document.Parse(src, base)
		require.NoError(t, err)

		f(t, microdata.Parse(doc))
	}
}

func runParseAndEncode(src, base, expected string) func(t *testing.T) {
	return runParseHTML(src, base, func(t *testing.T, items microdata.Items) {
		data, err := value.Marshal(items)
		require.NoError(t, err)
		require.JSONEq(t, expected, string(data))
	})
}

func TestParserSchemaOrg(t *testing.T) {
	// nolint:misspell
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			"nested items",
			`
			<div itemscope itemtype="https://schema.org/Movie">
			<h1 itemprop="name">Pirates of the Carribean: On Stranger Tides (2011)</h1>
			Director:
			<div itemprop="director" itemscope itemtype="https://schema.org/Person">
			<span itemprop="name">Rob Marshall</span>
			</div>
			Stars:
			<div itemprop="actor" itemscope itemtype="https://schema.org/Person">
			<span itemprop="name">Johnny Depp</span>,
			</div>
			<div itemprop="actor" itemscope itemtype="https://schema.org/Person">
			<span itemprop="name">Penelope Cruz</span>
			</div>
			</div>
			`,
			`[{
				"type": ["https://schema.org/Movie"],
				"properties": {
					"name": ["Pirates of the Carribean: On Stranger Tides (2011)"],
					"director": [{"type": ["https://schema.org/Person"], "properties": {"name": ["Rob Marshall"]}}],
					"actor": [
						{"type": ["https://schema.org/Person"], "properties": {"name": ["Johnny Depp"]}},
						{"type": ["https://schema.org/Person"], "properties": {"name": ["Penelope Cruz"]}}
					]
				}
			}]`,
		},
		{
			"itemid",
			`
			<ul itemscope itemtype="http://schema.org/Book" itemid="urn:isbn:978-0141196404">
				<li itemprop="title">The Black &middot; Cloud</li>
				<li itemprop="author">Fred Hoyle</li>
			</ul>
			`,
			`[{
				"type": ["http://schema.org/Book"],
				"id": "urn:isbn:978-0141196404",
				"properties": {"title": ["The Black · Cloud"], "author": ["Fred Hoyle"]}
			}]`,
		},
		{
			"itemid without type",
			`<div itemscope itemid="urn:x"><span itemprop="a">1</span></div>`,
			`[{"properties": {"a": ["1"]}}]`,
		},
		{
			"meta content",
			`
			<html itemscope itemtype="http://schema.org/Person">
				<meta itemprop="length" content="1.70" />
			</html>
			`,
			`[{"type": ["http://schema.org/Person"], "properties": {"length": ["1.70"]}}]`,
		},
		{
			"repeated values",
			`
			<div itemscope itemtype="http://schema.org/Recipe">
				<span itemprop="ingredient">Flour</span>
				<span itemprop="ingredient">Flour</span>
				<span itemprop="ingredient">Eggs</span>
			</div>
			`,
			`[{"type": ["http://schema.org/Recipe"], "properties": {"ingredient": ["Flour", "Flour", "Eggs"]}}]`,
		},
		{
			"empty item",
			`<div itemscope></div><div itemscope><span>no prop</span></div>`,
			`[]`,
		},
		{
			"several items",
			`<div itemscope itemtype="A"></div><p><span itemscope itemtype="B C"></span></p>`,
			`[{"type": ["A"], "properties": {}}, {"type": ["B", "C"], "properties": {}}]`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, runParseAndEncode(test.html, "", test.expected))
	}
}

func TestParserValues(t *testing.T) {
	src := `
	<div itemscope itemtype="Thing">
		<img itemprop="image" src="/a.png">
		<a itemprop="url" href="page">link</a>
		<object itemprop="obj" data="o.swf"></object>
		<data itemprop="capacity" value="80">80 liters</data>
		<meter itemprop="volume" min="0" max="100" value="25">25%</meter>
		<time itemprop="start" datetime="2024-01-02">Jan 2</time>
		<time itemprop="end">Jan 3</time>
		<span itemprop="name given">  Jo
		  Doe </span>
		<a itemprop="empty">no href</a>
		<video itemprop="video" src="v.mp4"></video>
	</div>
	`

	t.Run("resolved", runParseHTML(src, "https://example.org/dir/", func(t *testing.T, items microdata.Items) {
		data, err := value.Marshal(items)
		require.NoError(t, err)
		require.Equal(t,
			`[{"type":["https://example.org/dir/Thing"],"properties":{`+
				`"image":["https://example.org/a.png"],`+
				`"url":["https://example.org/dir/page"],`+
				`"obj":["https://example.org/dir/o.swf"],`+
				`"capacity":["80"],"volume":["25"],`+
				`"start":["2024-01-02"],"end":["Jan 3"],`+
				`"name":["Jo Doe"],"given":["Jo Doe"],`+
				`"video":["https://example.org/dir/v.mp4"]}}]`,
			string(data))
	}))

	t.Run("no base", runParseHTML(src, "", func(t *testing.T, items microdata.Items) {
		require.Len(t, items, 1)
		require.Equal(t, []string{"Thing"}, items[0].Types)

		v, ok := items[0].First("image")
		require.True(t, ok)
		require.Equal(t, "/a.png", v)
	}))
}

func TestParserItemref(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			"subtree then itemref order",
			`
			<div itemscope itemtype="https://schema.org/Person" itemref="addr extra missing">
				<span itemprop="name">Ana</span>
				<span id="extra" itemprop="nickname">A</span>
			</div>
			<p id="addr" itemprop="address">Paris</p>
			`,
			`[{
				"type": ["https://schema.org/Person"],
				"properties": {"name": ["Ana"], "nickname": ["A"], "address": ["Paris"]}
			}]`,
		},
		{
			"referenced subtree",
			`
			<div itemscope itemtype="T" itemref="more"></div>
			<div id="more"><span itemprop="a">1</span><span itemprop="b">2</span></div>
			`,
			`[{"type": ["T"], "properties": {"a": ["1"], "b": ["2"]}}]`,
		},
		{
			"nested and referenced",
			`
			<div itemscope itemtype="T" itemref="child">
				<div id="child" itemprop="part" itemscope itemtype="P"><span itemprop="n">x</span></div>
			</div>
			`,
			`[{
				"type": ["T"],
				"properties": {"part": [{"type": ["P"], "properties": {"n": ["x"]}}]}
			}]`,
		},
		{
			"shared reference",
			`
			<div itemscope itemtype="A" itemref="lic"><span itemprop="name">a</span></div>
			<div itemscope itemtype="B" itemref="lic"><span itemprop="name">b</span></div>
			<span id="lic" itemprop="license">CC</span>
			`,
			`[
				{"type": ["A"], "properties": {"name": ["a"], "license": ["CC"]}},
				{"type": ["B"], "properties": {"name": ["b"], "license": ["CC"]}}
			]`,
		},
		{
			"cycle",
			`
			<div itemscope itemtype="A">
				<div id="b" itemprop="rel" itemscope itemtype="B" itemref="c"></div>
			</div>
			<div id="c" itemprop="back" itemscope itemtype="C" itemref="b"></div>
			`,
			`[{
				"type": ["A"],
				"properties": {"rel": [{
					"type": ["B"],
					"properties": {"back": [{"type": ["C"], "properties": {}}]}
				}]}
			}]`,
		},
		{
			"ancestor reference",
			`<div id="root"><div itemscope itemtype="X" itemref="root"><span itemprop="a">1</span></div></div>`,
			`[{"type": ["X"], "properties": {"a": ["1"]}}]`,
		},
		{
			"self reference",
			`<div id="self" itemscope itemtype="X" itemref="self"><span itemprop="a">1</span></div>`,
			`[{"type": ["X"], "properties": {"a": ["1"]}}]`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, runParseAndEncode(test.html, "", test.expected))
	}
}

func TestParserDeterminism(t *testing.T) {
	src := `
	<div itemscope itemtype="https://schema.org/Event" itemref="loc">
		<span itemprop="name">Concert</span>
		<span itemprop="z">1</span><span itemprop="a">2</span>
	</div>
	<div id="loc" itemprop="location" itemscope itemtype="https://schema.org/Place">
		<span itemprop="name">Hall</span>
	</div>
	`

	doc, err := document.Parse(src, "https://example.org/")
	require.NoError(t, err)

	first, err := value.Marshal(microdata.Parse(doc))
	require.NoError(t, err)
	for range 5 {
		data, err := value.Marshal(microdata.Parse(doc))
		require.NoError(t, err)
		require.Equal(t, string(first), string(data))
	}
}
