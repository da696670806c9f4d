// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/cristalhq/acmd"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"

	"codeberg.org/readeck/metaextract/configs"
	"codeberg.org/readeck/metaextract/internal/httpclient"
	"codeberg.org/readeck/metaextract/pkg/extract"
	"codeberg.org/readeck/metaextract/pkg/extract/manifest"
	"codeberg.org/readeck/metaextract/pkg/extract/oembed"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

func init() {
	commands = append(commands, acmd.Command{
		Name:        "extract",
		Description: "Extract the metadata of HTML documents",
		ExecFunc:    runExtract,
	})
}

// inputDocument is the output of one input.
type inputDocument struct {
	Input  string          `json:"input"`
	URL    string          `json:"url,omitempty"`
	Result *extract.Result `json:"result,omitempty"`
	OEmbed *value.Object   `json:"oembed,omitempty"`
	Error  *inputError     `json:"error,omitempty"`
}

type inputError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// extractCommand holds an extract run's settings.
type extractCommand struct {
	base     string
	charset  string
	fetch    bool
	options  []extract.Option
	client   *http.Client
	maxSize  int64
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
	stdin    io.Reader
}

func runExtract(ctx context.Context, args []string) error {
	var formats stringsFlag
	var output, query string
	var jobs int
	var twitterFallback bool
	cmd := &extractCommand{
		readFile: os.ReadFile,
		stdin:    os.Stdin,
	}

	var flags appFlags
	fs := flags.Flags()
	// nolint: errcheck
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: extract [arguments...] FILE|URL|- ...")
		fmt.Fprintln(fs.Output(), "  FILE|URL|-")
		fmt.Fprintln(fs.Output(), "    \tHTML file, URL or standard input")
		fs.PrintDefaults()
	}
	fs.StringVar(&cmd.base, "base", "", "base URL of the documents")
	fs.Var(&formats, "format", "format to extract (repeatable)")
	fs.StringVar(&output, "o", outputJSON, "output format (json, yaml)")
	fs.StringVar(&query, "q", "", "jq filter applied on each document")
	fs.BoolVar(&cmd.fetch, "fetch", false, "fetch the manifest and oEmbed endpoints")
	fs.IntVar(&jobs, "j", runtime.NumCPU(), "number of documents processed at once")
	fs.StringVar(&cmd.charset, "charset", "", "character encoding of the files")
	fs.BoolVar(&twitterFallback, "twitter-fallback", false, "complete twitter with open graph values")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("at least one input is required")
	}
	if cmd.charset != "" {
		enc, err := htmlindex.Get(cmd.charset)
		if err != nil {
			return fmt.Errorf("invalid charset %q", cmd.charset)
		}
		cmd.charset, _ = htmlindex.Name(enc)
	}

	if err := appPreRun(&flags); err != nil {
		return err
	}

	p, err := newPrinter(os.Stdout, output, query)
	if err != nil {
		return err
	}

	if len(formats) == 0 {
		formats = configs.Config.Extractor.Formats
	}
	selected := []extract.Format{}
	for _, name := range formats {
		f, err := extract.ParseFormat(name)
		if err != nil {
			return err
		}
		selected = append(selected, f)
	}

	cmd.logger = slog.Default()
	cmd.maxSize = configs.Config.Extractor.MaxBodySize
	cmd.fetch = cmd.fetch || configs.Config.Extractor.FetchManifest || configs.Config.Extractor.FetchOEmbed
	cmd.options = []extract.Option{
		extract.WithFormats(selected...),
		extract.WithLogger(cmd.logger),
		extract.WithTwitterFallback(twitterFallback),
	}
	if cmd.client, err = httpclient.NewCacheClient(httpclient.ConfigOptions()...); err != nil {
		return err
	}

	docs, err := cmd.run(ctx, inputs, jobs)
	if err != nil {
		return err
	}

	failed := 0
	for _, doc := range docs {
		if doc.Error != nil {
			failed++
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if err = p.print(data); err != nil {
			return err
		}
	}
	if err = p.close(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(docs))
	}
	return nil
}

// run processes the inputs concurrently. The documents are in
// input order.
func (c *extractCommand) run(ctx context.Context, inputs []string, jobs int) ([]*inputDocument, error) {
	docs := make([]*inputDocument, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))

	for i, input := range inputs {
		g.Go(func() error {
			docs[i] = c.process(ctx, input)
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *extractCommand) process(ctx context.Context, input string) *inputDocument {
	doc := &inputDocument{Input: input}
	logger := c.logger.With(slog.String("input", input))

	text, docURL, err := c.read(ctx, input)
	if err == nil {
		base := c.base
		if base == "" {
			base = docURL
		}
		doc.URL = docURL
		doc.Result, err = extract.All(text, base, c.options...)
	}
	if err != nil {
		code := extract.CodeOf(err)
		logger.Error("extraction failed", slog.String("code", code.String()), slog.Any("err", err))
		doc.Error = &inputError{Code: code.String(), Message: err.Error()}
		return doc
	}

	if c.fetch {
		c.fetchManifest(ctx, logger, doc.Result)
		doc.OEmbed = c.fetchOEmbed(ctx, logger, doc.Result)
	}
	return doc
}

// read returns the HTML text of an input and its URL, if any.
func (c *extractCommand) read(ctx context.Context, input string) (string, string, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		page, err := extract.FetchPage(ctx, c.client, input, c.maxSize)
		if err != nil {
			return "", "", err
		}
		return page.HTML, page.URL, nil
	}

	var body []byte
	var err error
	if input == "-" {
		body, err = io.ReadAll(io.LimitReader(c.stdin, c.maxSize))
	} else {
		body, err = c.readFile(input)
	}
	if err != nil {
		return "", "", err
	}

	contentType := ""
	if c.charset != "" {
		contentType = "text/html; charset=" + c.charset
	}
	text, err := extract.DecodePage(body, contentType)
	return text, "", err
}

func (c *extractCommand) fetchManifest(ctx context.Context, logger *slog.Logger, res *extract.Result) {
	if len(res.Manifest) == 0 {
		return
	}
	var d struct {
		Href string `json:"href"`
	}
	if err := json.Unmarshal(res.Manifest, &d); err != nil || d.Href == "" {
		return
	}

	m, err := manifest.Fetch(ctx, c.client, d.Href)
	if err != nil {
		logger.Warn("cannot fetch manifest", slog.String("href", d.Href), slog.Any("err", err))
		return
	}

	data, err := value.Marshal(&manifest.Discovery{Href: d.Href, Manifest: m})
	if err != nil {
		logger.Warn("cannot encode manifest", slog.Any("err", err))
		return
	}
	res.Manifest = data
}

func (c *extractCommand) fetchOEmbed(ctx context.Context, logger *slog.Logger, res *extract.Result) *value.Object {
	if len(res.OEmbed) == 0 {
		return nil
	}
	d := new(oembed.Discovery)
	if err := json.Unmarshal(res.OEmbed, d); err != nil {
		return nil
	}

	for _, e := range d.Endpoints() {
		o, err := oembed.Fetch(ctx, c.client, e)
		if err != nil {
			logger.Warn("cannot fetch oembed", slog.String("href", e.Href), slog.Any("err", err))
			continue
		}
		return o
	}
	return nil
}
