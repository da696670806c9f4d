// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package jsonld collects the JSON-LD documents embedded in HTML.
package jsonld

import (
	"log/slog"
	"mime"
	"strings"

	"golang.org/x/net/html/atom"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

const mediaType = "application/ld+json"

// Parse returns every JSON-LD object or array found in a
// <script type="application/ld+json"> element, in document order
// and unchanged. Scripts that can't be decoded are skipped.
func Parse(d *document.Document, logger *slog.Logger) []any {
	if logger == nil {
		logger = slog.Default()
	}

	res := []any{}
	for n := range document.Elements(d.Root()) {
		if n.DataAtom != atom.Script {
			continue
		}
		typ, _ := document.Attr(n, "type")
		if mt, _, err := mime.ParseMediaType(typ); err != nil || mt != mediaType {
			continue
		}

		text := cleanup(document.RawText(n))
		if text == "" {
			continue
		}

		v, err := value.Decode(strings.NewReader(text))
		if err != nil {
			logger.Debug("invalid JSON-LD script", slog.Any("err", err))
			continue
		}

		switch v.(type) {
		case *value.Object, []any:
			res = append(res, v)
		default:
			logger.Debug("JSON-LD script is not an object", slog.Any("value", v))
		}
	}

	return res
}

// cleanup removes what some publishers wrap their JSON with.
func cleanup(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "\ufeff"))
	for _, w := range [][2]string{{"<!--", "-->"}, {"<![CDATA[", "]]>"}, {"//<![CDATA[", "//]]>"}} {
		if x, ok := strings.CutPrefix(s, w[0]); ok {
			s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), w[1]))
		}
	}
	return s
}
