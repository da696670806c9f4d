// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package meta

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// Open Graph namespaces that are kept under their own prefix.
var ogNamespaces = []string{"article:", "book:", "profile:", "music:", "video:", "fb:"}

// Open Graph keys that may repeat and are collected in a list.
// They're stored under a flat name so they can't collide with
// the scalar of their parent key (og:locale).
var ogListKeys = map[string]string{
	"locale:alternate": "locale_alternate",
	"article:author":   "article_author",
	"article:tag":      "article_tag",
	"book:author":      "book_author",
	"book:tag":         "book_tag",
	"video:actor":      "video_actor",
	"video:tag":        "video_tag",
	"video:director":   "video_director",
	"video:writer":     "video_writer",
	"music:musician":   "music_musician",
	"music:song":       "music_song",
	"music:album":      "music_album",
}

// Structured media properties.
var ogMedia = map[string]string{
	"image": "images",
	"video": "videos",
	"audio": "audios",
}

// Leaf names holding a URL.
var urlLeaves = []string{"url", "secure_url", "src", "image", "video", "audio", "player", "stream"}

func isURLKey(path []string) bool {
	leaf := path[len(path)-1]
	if len(path) > 1 && path[0] == "video" && leaf != "url" && leaf != "secure_url" {
		// og:video:* attributes (width, type...) and the video namespace
		return false
	}
	return slices.Contains(urlLeaves, leaf)
}

func graphValue(d *document.Document, n *html.Node, key string) string {
	v, ok := document.Attr(n, "content")
	if !ok {
		v, _ = document.Attr(n, "value")
	}
	v = strings.TrimSpace(v)
	if v != "" && isURLKey(strings.Split(key, ":")) {
		return d.Resolve(v)
	}
	return v
}

func graphKey(n *html.Node) string {
	k, _ := document.Attr(n, "property")
	if strings.TrimSpace(k) == "" {
		k, _ = document.Attr(n, "name")
	}
	return strings.ToLower(strings.TrimSpace(k))
}

var ogSpecs = []rawSpec{
	{"//meta[@property or @name][@content]", lastWins, func(d *document.Document, n *html.Node, emit func(string, any)) {
		k := graphKey(n)
		switch {
		case strings.HasPrefix(k, "og:"):
			k = strings.TrimPrefix(k, "og:")
		case slices.ContainsFunc(ogNamespaces, func(p string) bool { return strings.HasPrefix(k, p) }):
		default:
			return
		}
		if k == "" || strings.HasSuffix(k, ":") {
			return
		}
		emit(k, graphValue(d, n, k))
	}},
}

var twitterSpecs = []rawSpec{
	{"//meta[@property or @name][@content or @value]", lastWins, func(d *document.Document, n *html.Node, emit func(string, any)) {
		k := graphKey(n)
		if !strings.HasPrefix(k, "twitter:") {
			return
		}
		k = strings.TrimPrefix(k, "twitter:")
		if k == "" || strings.HasSuffix(k, ":") {
			return
		}
		emit(k, graphValue(d, n, k))
	}},
}

// setPath stores v under a ":" separated path, creating intermediate
// objects. A scalar found where an object is needed moves under "url".
func setPath(o *value.Object, path []string, v any) {
	for _, k := range path[:len(path)-1] {
		next := o.GetObject(k)
		if next == nil {
			next = value.NewObject()
			if cur, ok := o.Get(k); ok {
				next.Set("url", cur)
			}
			o.Set(k, next)
		}
		o = next
	}

	leaf := path[len(path)-1]
	if cur := o.GetObject(leaf); cur != nil {
		// og:image after og:image:width for the same image
		if _, ok := cur.Get("url"); !ok {
			cur.Set("url", v)
			return
		}
	}
	o.Set(leaf, v)
}

// mediaList builds the list of structured media objects of one kind.
// A media starts on its root property (og:image or og:image:url) and
// receives every following attribute until the next one starts.
type mediaList struct {
	items   []any
	current *value.Object
}

func (m *mediaList) add(attr string, v any) {
	if attr == "url" {
		if m.current == nil || hasKey(m.current, "url") {
			m.current = value.NewObject()
			m.items = append(m.items, m.current)
		}
		m.current.Set("url", v)
		return
	}

	if m.current == nil {
		m.current = value.NewObject()
		m.items = append(m.items, m.current)
	}
	m.current.Set(attr, v)
}

func hasKey(o *value.Object, k string) bool {
	_, ok := o.Get(k)
	return ok
}

// OpenGraph returns the document's Open Graph properties, with the
// "og:" prefix removed and ":" segments nested in objects. It returns
// nil when the document has no Open Graph markup.
func OpenGraph(d *document.Document) *value.Object {
	res := value.NewObject()
	media := map[string]*mediaList{}

	for e := range collect(d, ogSpecs) {
		if k, ok := ogListKeys[e.key]; ok {
			res.Append(k, e.value)
			continue
		}

		path := strings.Split(e.key, ":")
		setPath(res, path, e.value)

		if _, ok := ogMedia[path[0]]; ok && len(path) <= 2 {
			m := media[path[0]]
			if m == nil {
				m = &mediaList{}
				media[path[0]] = m
			}
			attr := "url"
			if len(path) == 2 {
				attr = path[1]
			}
			m.add(attr, e.value)
		}
	}

	if res.Len() == 0 {
		return nil
	}

	for _, k := range []string{"image", "video", "audio"} {
		if m := media[k]; m != nil && len(m.items) > 0 {
			res.Set(ogMedia[k], m.items)
		}
	}
	return res
}

// Twitter returns the document's Twitter Card properties, with the
// "twitter:" prefix removed and ":" segments nested in objects.
// It returns nil when the document has no Twitter Card markup.
func Twitter(d *document.Document) *value.Object {
	res := value.NewObject()
	for e := range collect(d, twitterSpecs) {
		setPath(res, strings.Split(e.key, ":"), e.value)
	}

	if res.Len() == 0 {
		return nil
	}
	return res
}

// TwitterFallback fills the missing Twitter Card title, description
// and image with their Open Graph counterpart. Either argument may be
// nil. It returns nil when there is nothing to report.
func TwitterFallback(tw, og *value.Object) *value.Object {
	if og.Len() == 0 {
		return tw
	}
	if tw == nil {
		tw = value.NewObject()
	}

	for _, k := range []string{"title", "description", "image"} {
		if hasKey(tw, k) {
			continue
		}
		v, ok := og.Get(k)
		if !ok {
			continue
		}
		if x, isObject := v.(*value.Object); isObject {
			v, ok = x.Get("url")
			if !ok {
				continue
			}
		}
		tw.Set(k, v)
	}

	if tw.Len() == 0 {
		return nil
	}
	return tw
}
