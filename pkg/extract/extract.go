// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package extract extracts the structured metadata of HTML documents.

It supports meta tags, Open Graph, Twitter Cards, JSON-LD, Microdata,
Microformats, RDFa, Dublin Core, Web App Manifest discovery, oEmbed
discovery and rel links. Each format runs independently: a format that
fails or finds nothing is absent from the [Result], and never prevents
the other formats from running.
*/
package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/manifest"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// version is the library version.
const version = "0.3.0"

// Version returns the library version.
func Version() string {
	return version
}

// Observer receives the outcome of every format run.
type Observer func(f Format, elapsed time.Duration, found bool, err error)

// Extractor runs the format extractors on documents.
// It holds no state between runs and can be used concurrently.
type Extractor struct {
	formats         []Format
	logger          *slog.Logger
	manifest        string
	twitterFallback bool
	observer        Observer
}

// Option is an [Extractor] option.
type Option func(e *Extractor)

// New returns an [Extractor]. It runs every format unless
// [WithFormats] restricts them.
func New(options ...Option) *Extractor {
	res := &Extractor{}
	for _, fn := range options {
		if fn != nil {
			fn(res)
		}
	}

	if len(res.formats) == 0 {
		res.formats = Formats
	}
	if res.logger == nil {
		res.logger = slog.Default()
	}
	return res
}

// WithFormats restricts the formats the extractor runs.
func WithFormats(formats ...Format) Option {
	return func(e *Extractor) {
		e.formats = []Format{}
		for _, f := range Formats {
			if slices.Contains(formats, f) {
				e.formats = append(e.formats, f)
			}
		}
	}
}

// WithLogger sets the extractor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithManifestJSON gives the extractor the content of the document's
// manifest, which it then parses.
func WithManifestJSON(data string) Option {
	return func(e *Extractor) {
		e.manifest = data
	}
}

// WithTwitterFallback fills the missing Twitter title, description and
// image with their Open Graph values.
func WithTwitterFallback(enabled bool) Option {
	return func(e *Extractor) {
		e.twitterFallback = enabled
	}
}

// WithObserver sets a function that's called after every format run.
func WithObserver(fn Observer) Option {
	return func(e *Extractor) {
		e.observer = fn
	}
}

// Formats returns the formats the extractor runs.
func (e *Extractor) Formats() []Format {
	return slices.Clone(e.formats)
}

// Log returns the extractor's logger.
func (e *Extractor) Log() *slog.Logger {
	return e.logger
}

// Run parses an HTML text and runs the extractor's formats on it.
// It fails only when the input can't be used.
func (e *Extractor) Run(text, baseURL string) (*Result, error) {
	d, err := parse(text, baseURL)
	if err != nil {
		return nil, err
	}
	return e.RunDocument(d), nil
}

// RunDocument runs the extractor's formats on a parsed document.
func (e *Extractor) RunDocument(d *document.Document) *Result {
	res := &Result{}
	for _, f := range e.formats {
		o := e.runFormat(f, d)
		if o.err == nil && !o.empty {
			res.Set(f, o.data)
		}
	}
	return res
}

// outcome is the result of one format run.
type outcome struct {
	data  json.RawMessage
	empty bool
	err   error
}

// runFormat runs one format. A failure, including a panic, only
// leaves the format empty.
func (e *Extractor) runFormat(f Format, d *document.Document) (o outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome{empty: true, err: fmt.Errorf("%w: %v", ErrInternal, r)}
		}
		if o.err != nil {
			e.logger.Debug("format failed", logFormat(f), logErr(o.err))
		}
		if e.observer != nil {
			e.observer(f, time.Since(start), !o.empty, o.err)
		}
	}()

	fn, ok := extractors[f]
	if !ok {
		return outcome{empty: true, err: fmt.Errorf("%w: unknown format %q", ErrInternal, f)}
	}

	v := fn(e, d)
	if v == nil {
		return outcome{empty: true}
	}

	data, err := value.Marshal(v)
	if err != nil {
		return outcome{empty: true, err: fmt.Errorf("%w: %w", ErrInternal, err)}
	}
	return outcome{data: data}
}

// One runs a single format on an HTML text. It returns nil when
// the format has no data.
func (e *Extractor) One(f Format, text, baseURL string) ([]byte, error) {
	d, err := parse(text, baseURL)
	if err != nil {
		return nil, err
	}
	o := e.runFormat(f, d)
	if o.err != nil {
		return nil, o.err
	}
	return o.data, nil
}

func parse(text, baseURL string) (*document.Document, error) {
	if text == "" {
		return nil, ErrMissingInput
	}
	d, err := document.Parse(text, baseURL)
	return d, inputError(err)
}

func logFormat(f Format) slog.Attr {
	return slog.String("format", string(f))
}

func logErr(err error) slog.Attr {
	return slog.Any("err", err)
}

// All runs every format on an HTML text.
func All(text, baseURL string, options ...Option) (*Result, error) {
	return New(options...).Run(text, baseURL)
}

// Meta returns the document's meta tags.
func Meta(text, baseURL string) ([]byte, error) {
	return New().One(FormatMeta, text, baseURL)
}

// OpenGraph returns the document's Open Graph properties.
func OpenGraph(text, baseURL string) ([]byte, error) {
	return New().One(FormatOpenGraph, text, baseURL)
}

// Twitter returns the document's Twitter Card properties.
func Twitter(text, baseURL string) ([]byte, error) {
	return New().One(FormatTwitter, text, baseURL)
}

// TwitterWithFallback returns the document's Twitter Card properties,
// completed with Open Graph values.
func TwitterWithFallback(text, baseURL string) ([]byte, error) {
	return New(WithTwitterFallback(true)).One(FormatTwitter, text, baseURL)
}

// JSONLD returns the document's JSON-LD scripts.
func JSONLD(text, baseURL string) ([]byte, error) {
	return New().One(FormatJSONLD, text, baseURL)
}

// Microdata returns the document's top level microdata items.
func Microdata(text, baseURL string) ([]byte, error) {
	return New().One(FormatMicrodata, text, baseURL)
}

// Microformats returns the document's top level microformats.
func Microformats(text, baseURL string) ([]byte, error) {
	return New().One(FormatMicroformats, text, baseURL)
}

// RDFa returns the document's RDFa triples.
func RDFa(text, baseURL string) ([]byte, error) {
	return New().One(FormatRDFa, text, baseURL)
}

// DublinCore returns the document's Dublin Core properties.
func DublinCore(text string) ([]byte, error) {
	return New().One(FormatDublinCore, text, "")
}

// OEmbed returns the document's oEmbed endpoints.
func OEmbed(text, baseURL string) ([]byte, error) {
	return New().One(FormatOEmbed, text, baseURL)
}

// RelLinks returns the document's links, grouped by relation.
func RelLinks(text, baseURL string) ([]byte, error) {
	return New().One(FormatRelLinks, text, baseURL)
}

// ManifestDiscovery is the manifest link of a document, and its parsed
// manifest when one was given.
type ManifestDiscovery = manifest.Discovery

// Manifest returns the document's manifest link. It's nil when the
// document has none.
func Manifest(text, baseURL string) (*ManifestDiscovery, error) {
	d, err := parse(text, baseURL)
	if err != nil {
		return nil, err
	}
	res := &ManifestDiscovery{Href: manifest.Link(d)}
	if res.IsEmpty() {
		return nil, nil
	}
	return res, nil
}

// ParseManifest parses a manifest and returns its JSON encoding,
// with its URLs resolved against baseURL.
func ParseManifest(data, baseURL string) ([]byte, error) {
	if data == "" {
		return nil, ErrMissingInput
	}
	m, err := manifest.ParseString(data, baseURL)
	if err != nil {
		return nil, inputError(err)
	}
	return value.Marshal(m)
}
