// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"fmt"
	"strings"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/jsonld"
	"codeberg.org/readeck/metaextract/pkg/extract/manifest"
	"codeberg.org/readeck/metaextract/pkg/extract/meta"
	"codeberg.org/readeck/metaextract/pkg/extract/microdata"
	"codeberg.org/readeck/metaextract/pkg/extract/microformats"
	"codeberg.org/readeck/metaextract/pkg/extract/oembed"
	"codeberg.org/readeck/metaextract/pkg/extract/rdfa"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// Format is a metadata format. Its value is the format's key
// in a [Result].
type Format string

// Supported formats.
const (
	FormatMeta         Format = "meta"
	FormatOpenGraph    Format = "open_graph"
	FormatTwitter      Format = "twitter"
	FormatJSONLD       Format = "json_ld"
	FormatMicrodata    Format = "microdata"
	FormatMicroformats Format = "microformats"
	FormatRDFa         Format = "rdfa"
	FormatDublinCore   Format = "dublin_core"
	FormatManifest     Format = "manifest"
	FormatOEmbed       Format = "oembed"
	FormatRelLinks     Format = "rel_links"
)

// Formats lists every format, in result order.
var Formats = []Format{
	FormatMeta,
	FormatOpenGraph,
	FormatTwitter,
	FormatJSONLD,
	FormatMicrodata,
	FormatMicroformats,
	FormatRDFa,
	FormatDublinCore,
	FormatManifest,
	FormatOEmbed,
	FormatRelLinks,
}

// ParseFormat returns the format of a name. Dashes are accepted
// in place of underscores.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	if _, ok := extractors[f]; !ok {
		return "", fmt.Errorf("unknown format %q", name)
	}
	return f, nil
}

// extractorFunc returns a format's value, or nil when there is no data.
type extractorFunc func(e *Extractor, d *document.Document) any

var extractors = map[Format]extractorFunc{
	FormatMeta:         extractMeta,
	FormatOpenGraph:    extractOpenGraph,
	FormatTwitter:      extractTwitter,
	FormatJSONLD:       extractJSONLD,
	FormatMicrodata:    extractMicrodata,
	FormatMicroformats: extractMicroformats,
	FormatRDFa:         extractRDFa,
	FormatDublinCore:   extractDublinCore,
	FormatManifest:     extractManifest,
	FormatOEmbed:       extractOEmbed,
	FormatRelLinks:     extractRelLinks,
}

func object(o *value.Object) any {
	if o == nil || o.Len() == 0 {
		return nil
	}
	return o
}

func extractMeta(_ *Extractor, d *document.Document) any {
	return object(meta.Meta(d))
}

func extractOpenGraph(_ *Extractor, d *document.Document) any {
	return object(meta.OpenGraph(d))
}

func extractTwitter(e *Extractor, d *document.Document) any {
	tw := meta.Twitter(d)
	if e.twitterFallback {
		return object(meta.TwitterFallback(tw, meta.OpenGraph(d)))
	}
	return object(tw)
}

func extractJSONLD(e *Extractor, d *document.Document) any {
	if res := jsonld.Parse(d, e.logger); len(res) > 0 {
		return res
	}
	return nil
}

func extractMicrodata(_ *Extractor, d *document.Document) any {
	if res := microdata.Parse(d); len(res) > 0 {
		return res
	}
	return nil
}

func extractMicroformats(_ *Extractor, d *document.Document) any {
	if res := microformats.Parse(d); len(res) > 0 {
		return res
	}
	return nil
}

func extractRDFa(_ *Extractor, d *document.Document) any {
	if res := rdfa.Parse(d); len(res) > 0 {
		return res
	}
	return nil
}

func extractDublinCore(_ *Extractor, d *document.Document) any {
	return object(meta.DublinCore(d))
}

func extractManifest(e *Extractor, d *document.Document) any {
	res, err := manifest.Discover(d, e.manifest)
	if err != nil {
		// A broken manifest still leaves its link.
		res = &manifest.Discovery{Href: manifest.Link(d)}
		e.logger.Debug("cannot parse manifest", logFormat(FormatManifest), logErr(err))
	}
	if res.IsEmpty() {
		return nil
	}
	return res
}

func extractOEmbed(_ *Extractor, d *document.Document) any {
	if res := oembed.Discover(d); res != nil {
		return res
	}
	return nil
}

func extractRelLinks(_ *Extractor, d *document.Document) any {
	return object(meta.RelLinks(d))
}
