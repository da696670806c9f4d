// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microformats_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/microformats"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

func parse(t *testing.T, src, base string) microformats.Items {
	t.Helper()
	doc, err := document.Parse(src, base)
	require.NoError(t, err)
	return microformats.Parse(doc)
}

func encode(t *testing.T, items microformats.Items) string {
	t.Helper()
	data, err := value.Marshal(items)
	require.NoError(t, err)
	return string(data)
}

func TestParse(t *testing.T) {
	tests := []struct {
		html     string
		base     string
		expected string
	}{
		{
			`<div class="h-card"><img src="a.jpg" alt="Jo"></div>`,
			"https://x.test/",
			`[{"type":["h-card"],"properties":{"name":["Jo"],"photo":["https://x.test/a.jpg"]}}]`,
		},
		{
			`<p>nothing here</p>`,
			"",
			`[]`,
		},
		{
			`<div class="h-x- h--y h- h-Card"><span class="p-name">N</span></div>`,
			"",
			`[{"type":["h--y","h-x-"],"properties":{"name":["N"]}}]`,
		},
		{
			`<a class="h-card" href="/me">Jo Doe</a>`,
			"https://x.test/",
			`[{"type":["h-card"],"properties":{"name":["Jo Doe"],"url":["https://x.test/me"]}}]`,
		},
		{
			`<div class="h-card"><span class="p-name">Jo</span> <a class="u-url" href="/jo">site</a></div>`,
			"https://x.test/",
			`[{"type":["h-card"],"properties":{"name":["Jo"],"url":["https://x.test/jo"]}}]`,
		},
		{
			// explicit p-* suppresses the implied name
			`<div class="h-card"><span class="p-nickname">J</span></div>`,
			"",
			`[{"type":["h-card"],"properties":{"nickname":["J"]}}]`,
		},
		{
			// multiple root classes, sorted and unique
			`<div class="h-entry h-card h-entry"><p class="p-name">X</p></div>`,
			"",
			`[{"type":["h-card","h-entry"],"properties":{"name":["X"]}}]`,
		},
		{
			`<div class="h-entry"><p class="p-name p-summary">Hi</p><p class="p-category">a</p><p class="p-category">b</p></div>`,
			"",
			`[{"type":["h-entry"],"properties":{"name":["Hi"],"summary":["Hi"],"category":["a","b"]}}]`,
		},
		{
			`<div class="h-entry"><div class="e-content"> <p>Hello <b>world</b></p> </div></div>`,
			"",
			`[{"type":["h-entry"],"properties":{"content":[{"html":"<p>Hello <b>world</b></p>","value":"Hello world"}]}}]`,
		},
		{
			`<div class="h-card"><abbr class="p-name" title="Jo Doe">JD</abbr><data class="p-tel" value="555">call</data><img class="p-org" alt=" Acme " src="x.png"></div>`,
			"",
			`[{"type":["h-card"],"properties":{"name":["Jo Doe"],"tel":["555"],"org":["Acme"]}}]`,
		},
		{
			`<div class="h-card"><p class="p-tel"><span class="value">+1</span> (<span class="value">555</span>)</p></div>`,
			"",
			`[{"type":["h-card"],"properties":{"tel":["+1555"]}}]`,
		},
		{
			`<div class="h-card"><span class="p-note"></span></div>`,
			"",
			`[{"type":["h-card"],"properties":{"note":[""]}}]`,
		},
	}

	for i, test := range tests {
		t.Run(strconv.Itoa(i+1), func(t *testing.T) {
			require.Equal(t, test.expected, encode(t, parse(t, test.html, test.base)))
		})
	}
}

func TestURLProperties(t *testing.T) {
	src := `
	<div class="h-entry">
		<a class="u-url" href="post">link</a>
		<img class="u-photo" src="/p.jpg">
		<video class="u-video" poster="poster.jpg"></video>
		<object class="u-object" data="o.bin"></object>
		<abbr class="u-uid" title="urn:x">uid</abbr>
		<data class="u-syndication" value="https://elsewhere.test/1"></data>
		<span class="u-like-of">https://liked.test/</span>
	</div>`

	items := parse(t, src, "https://x.test/blog/")
	require.Equal(t,
		`[{"type":["h-entry"],"properties":{`+
			`"url":["https://x.test/blog/post"],`+
			`"photo":["https://x.test/p.jpg"],`+
			`"video":["https://x.test/blog/poster.jpg"],`+
			`"object":["https://x.test/blog/o.bin"],`+
			`"uid":["urn:x"],`+
			`"syndication":["https://elsewhere.test/1"],`+
			`"like-of":["https://liked.test/"]}}]`,
		encode(t, items))
}

func TestDateProperties(t *testing.T) {
	tests := []struct {
		html     string
		expected string
	}{
		{
			`<time class="dt-published" datetime="2024-03-01">March 1st</time>`,
			`["2024-03-01"]`,
		},
		{
			`<time class="dt-published" datetime="2024-03-01T10:20:30Z"></time>`,
			`["2024-03-01T10:20:30Z"]`,
		},
		{
			`<time class="dt-published" datetime="2024-03-01 10:20">x</time>`,
			`["2024-03-01T10:20:00"]`,
		},
		{
			`<abbr class="dt-published" title="2024-03-01T10:20:30+0100">x</abbr>`,
			`["2024-03-01T10:20:30+01:00"]`,
		},
		{
			`<span class="dt-published">March 1, 2024</span>`,
			`["2024-03-01"]`,
		},
		{
			`<time class="dt-published">2024-03-03 5pm</time>`,
			`["2024-03-03T17:00:00"]`,
		},
		{
			`<span class="dt-published">March 3, 2024 10am</span>`,
			`["2024-03-03T10:00:00"]`,
		},
		{
			`<span class="dt-published">2024-03-03 5 pm +0100</span>`,
			`["2024-03-03T17:00:00+01:00"]`,
		},
		{
			`<span class="dt-published">not a date</span>`,
			`["not a date"]`,
		},
		{
			`<span class="dt-published"><span class="value">2024-03-01</span> at <span class="value">5pm</span></span>`,
			`["2024-03-01T17:00:00"]`,
		},
		{
			`<span class="dt-published">` +
				`<time class="value" datetime="2024-03-01"></time>` +
				`<span class="value">10:30</span><span class="value">-0500</span></span>`,
			`["2024-03-01T10:30:00-05:00"]`,
		},
		{
			`<span class="dt-published"><span class="value-title" title="2024-061"></span>March 1st</span>`,
			`["2024-061"]`,
		},
	}

	for i, test := range tests {
		t.Run(strconv.Itoa(i+1), func(t *testing.T) {
			items := parse(t, `<div class="h-entry"><p class="p-name">x</p>`+test.html+`</div>`, "")
			require.Len(t, items, 1)
			v, _ := items[0].Properties.Get("published")
			data, err := value.Marshal(v)
			require.NoError(t, err)
			require.Equal(t, test.expected, string(data))
		})
	}

	t.Run("implied date", func(t *testing.T) {
		items := parse(t, `
		<div class="h-event">
			<p class="p-name">Party</p>
			<time class="dt-start" datetime="2024-05-02 20:00">May 2nd</time>
			until <time class="dt-end" datetime="23:30">late</time>
		</div>`, "")
		require.Len(t, items, 1)
		require.Equal(t, "2024-05-02T20:00:00", items[0].First("start"))
		require.Equal(t, "2024-05-02T23:30:00", items[0].First("end"))
	})
}

func TestNested(t *testing.T) {
	src := `
	<article class="h-entry">
		<h1 class="p-name">Post</h1>
		<div class="p-author h-card"><a class="u-url" href="/jo">Jo</a><span class="p-name">Jo Doe</span></div>
		<a class="u-in-reply-to h-cite" href="https://other.test/1">other</a>
		<div class="e-content h-card"><p class="p-name">Body</p></div>
		<div class="h-cite"><span class="p-name">Child</span></div>
	</article>`

	items := parse(t, src, "https://x.test/")
	require.Len(t, items, 1)
	require.Equal(t,
		`[{"type":["h-entry"],"properties":{`+
			`"name":["Post"],`+
			`"author":[{"type":["h-card"],"properties":{"url":["https://x.test/jo"],"name":["Jo Doe"]},"value":"Jo Doe"}],`+
			`"in-reply-to":[{"type":["h-cite"],"properties":{"name":["other"],"url":["https://other.test/1"]},"value":"https://other.test/1"}],`+
			`"content":[{"type":["h-card"],"properties":{"name":["Body"]},"value":"Body","html":"<p class=\"p-name\">Body</p>"}]`+
			`},"children":[{"type":["h-cite"],"properties":{"name":["Child"]}}]}]`,
		encode(t, items))

	t.Run("of type", func(t *testing.T) {
		cards := items.OfType("h-card")
		require.Len(t, cards, 2)
		require.Equal(t, "Jo Doe", cards[0].First("name"))
		require.Equal(t, "Body", cards[1].First("name"))

		require.Len(t, items.OfType("h-cite"), 2)
		require.Empty(t, items.OfType("h-event"))
	})

	t.Run("nested property not in parent", func(t *testing.T) {
		entry := items[0]
		require.False(t, entry.Has("url"))
		require.Equal(t, []any{"Post"}, entry.Values("name"))
	})
}

func TestBackcompat(t *testing.T) {
	tests := []struct {
		html     string
		expected string
	}{
		{
			`<div class="vcard"><span class="fn">Jo Doe</span><a class="url" href="/jo">site</a>` +
				`<span class="adr"><span class="locality">Paris</span></span></div>`,
			`[{"type":["h-card"],"properties":{"name":["Jo Doe"],"url":["https://x.test/jo"],` +
				`"adr":[{"type":["h-adr"],"properties":{"locality":["Paris"]},"value":"Paris"}]}}]`,
		},
		{
			// no implied properties on classic roots
			`<div class="vcard"><img src="a.jpg" alt="Jo"></div>`,
			`[{"type":["h-card"],"properties":{}}]`,
		},
		{
			// mf2 classes are ignored in a classic root
			`<div class="hentry"><h1 class="entry-title p-summary">T</h1>` +
				`<abbr class="published" title="2024-01-02T03:04:05Z">Jan 2</abbr>` +
				`<div class="entry-content"><p>x</p></div></div>`,
			`[{"type":["h-entry"],"properties":{"name":["T"],"published":["2024-01-02T03:04:05Z"],` +
				`"content":[{"html":"<p>x</p>","value":"x"}]}}]`,
		},
		{
			// an mf2 root takes precedence over classic classes
			`<div class="vcard h-card"><span class="fn">Old</span><span class="p-name">New</span></div>`,
			`[{"type":["h-card"],"properties":{"name":["New"]}}]`,
		},
		{
			`<div class="vevent"><span class="summary">Talk</span>` +
				`<abbr class="dtstart" title="2024-06-01">June</abbr>` +
				`<div class="location vcard"><span class="fn">Hall</span></div></div>`,
			`[{"type":["h-event"],"properties":{"name":["Talk"],"start":["2024-06-01"],` +
				`"location":[{"type":["h-card"],"properties":{"name":["Hall"]},"value":"Hall"}]}}]`,
		},
	}

	for i, test := range tests {
		t.Run(strconv.Itoa(i+1), func(t *testing.T) {
			require.Equal(t, test.expected, encode(t, parse(t, test.html, "https://x.test/")))
		})
	}
}

func TestDeterminism(t *testing.T) {
	src := `
	<div class="h-feed">
		<div class="h-entry"><a class="u-url p-name" href="/1">One</a><time class="dt-published" datetime="2024-01-01"></time></div>
		<div class="h-entry"><a class="u-url p-name" href="/2">Two</a><span class="p-category">x</span></div>
	</div>
	<div class="vcard"><span class="fn">Jo</span></div>`

	first := encode(t, parse(t, src, "https://x.test/"))
	for range 5 {
		require.Equal(t, first, encode(t, parse(t, src, "https://x.test/")))
	}
}
