// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"codeberg.org/readeck/metaextract/configs"
	"codeberg.org/readeck/metaextract/internal/cache"
	"codeberg.org/readeck/metaextract/internal/metrics"
	"codeberg.org/readeck/metaextract/pkg/extract"
	"codeberg.org/readeck/metaextract/pkg/extract/manifest"
	"codeberg.org/readeck/metaextract/pkg/extract/oembed"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// cacheHeader tells whether a result came from the cache.
const cacheHeader = "X-Cache"

// extractInput is the body of an extraction request.
type extractInput struct {
	HTML            string   `json:"html"`
	BaseURL         string   `json:"base_url"`
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	Manifest        string   `json:"manifest"`
	TwitterFallback bool     `json:"twitter_fallback"`

	formats []extract.Format
}

// manifestInput is the body of a manifest request.
type manifestInput struct {
	JSON    string `json:"json"`
	BaseURL string `json:"base_url"`
}

func (s *Server) apiRoutes() http.Handler {
	r := chi.NewRouter()

	r.Mount("/info", infoRoutes())

	r.Group(func(r chi.Router) {
		r.Use(MaxBodySize(configs.Config.Extractor.MaxBodySize))
		r.Post("/extract", s.extractHandler)
		r.Post("/extract/{format}", s.extractFormatHandler)
		r.Post("/manifest", s.manifestHandler)
	})

	return r
}

func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	in, err := readExtractInput(r)
	if err != nil {
		Err(w, r, err)
		return
	}
	if err = in.setFormats(); err != nil {
		Err(w, r, err)
		return
	}

	res, err := s.extract(w, r, in)
	if err != nil {
		Err(w, r, err)
		return
	}

	Render(w, r, http.StatusOK, res)
}

func (s *Server) extractFormatHandler(w http.ResponseWriter, r *http.Request) {
	f, err := extract.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		TextMsg(w, r, http.StatusNotFound, err.Error())
		return
	}

	in, err := readExtractInput(r)
	if err != nil {
		Err(w, r, err)
		return
	}
	in.formats = []extract.Format{f}

	res, err := s.extract(w, r, in)
	if err != nil {
		Err(w, r, err)
		return
	}

	data := res.Get(f)
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	RenderJSON(w, http.StatusOK, data)
}

func (s *Server) manifestHandler(w http.ResponseWriter, r *http.Request) {
	in := manifestInput{}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mt {
	case "application/json":
		if err := decodeJSON(r.Body, &in); err != nil {
			Err(w, r, err)
			return
		}
	case "application/manifest+json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			Err(w, r, err)
			return
		}
		in.JSON = string(body)
		in.BaseURL = r.URL.Query().Get("base")
	default:
		Err(w, r, errUnsupportedMediaType(mt))
		return
	}

	data, err := extract.ParseManifest(in.JSON, in.BaseURL)
	if err != nil {
		Err(w, r, err)
		return
	}
	RenderJSON(w, http.StatusOK, data)
}

// extract runs the extractor on an input, possibly fetching it first.
// Results are kept in the server's cache.
func (s *Server) extract(w http.ResponseWriter, r *http.Request, in *extractInput) (*extract.Result, error) {
	ctx := r.Context()
	key := in.cacheKey()

	res := new(extract.Result)
	if ok, err := s.cache.GetJSON(ctx, key, res); err != nil {
		Log(r).Warn("cache error", slog.Any("err", err))
	} else if ok {
		w.Header().Set(cacheHeader, "HIT")
		return res, nil
	}
	if s.cache != nil {
		w.Header().Set(cacheHeader, "MISS")
	}

	if in.HTML == "" && in.URL != "" {
		page, err := extract.FetchPage(ctx, s.client, in.URL, configs.Config.Extractor.MaxBodySize)
		if err != nil {
			return nil, err
		}
		in.HTML = page.HTML
		if in.BaseURL == "" {
			in.BaseURL = page.URL
		}
	}

	options := []extract.Option{
		extract.WithFormats(in.formats...),
		extract.WithLogger(Log(r)),
		extract.WithTwitterFallback(in.TwitterFallback),
		extract.WithManifestJSON(in.Manifest),
	}
	if configs.Config.Metrics.Enabled {
		options = append(options, extract.WithObserver(metrics.ObserveFormat))
	}

	res, err := extract.All(in.HTML, in.BaseURL, options...)
	if err != nil {
		return nil, err
	}

	if in.Manifest == "" && configs.Config.Extractor.FetchManifest {
		s.fetchManifest(ctx, Log(r), res)
	}
	if configs.Config.Extractor.FetchOEmbed {
		s.fetchOEmbed(ctx, Log(r), res)
	}

	if err := s.cache.SetJSON(ctx, key, res); err != nil {
		Log(r).Warn("cache error", slog.Any("err", err))
	}
	return res, nil
}

// fetchManifest replaces the result's manifest link with the
// link and its retrieved manifest.
func (s *Server) fetchManifest(ctx context.Context, logger *slog.Logger, res *extract.Result) {
	d := new(manifest.Discovery)
	if len(res.Manifest) == 0 || json.Unmarshal(res.Manifest, d) != nil || d.Href == "" {
		return
	}

	m, err := manifest.Fetch(ctx, s.client, d.Href)
	if err != nil {
		logger.Warn("cannot fetch manifest", slog.String("href", d.Href), slog.Any("err", err))
		return
	}
	d.Manifest = m

	data, err := value.Marshal(d)
	if err != nil {
		logger.Warn("cannot encode manifest", slog.Any("err", err))
		return
	}
	res.Manifest = data
}

// fetchOEmbed adds the response of the first oEmbed endpoint that
// answers to the result's oEmbed discovery, as its "response" member.
func (s *Server) fetchOEmbed(ctx context.Context, logger *slog.Logger, res *extract.Result) {
	d := new(oembed.Discovery)
	if len(res.OEmbed) == 0 || json.Unmarshal(res.OEmbed, d) != nil {
		return
	}

	for _, e := range d.Endpoints() {
		o, err := oembed.Fetch(ctx, s.client, e)
		if err != nil {
			logger.Warn("cannot fetch oembed", slog.String("href", e.Href), slog.Any("err", err))
			continue
		}

		v := new(value.Object)
		if err = v.UnmarshalJSON(res.OEmbed); err != nil {
			return
		}
		v.Set("response", o)
		if data, err := value.Marshal(v); err == nil {
			res.OEmbed = data
		}
		return
	}
}

// readExtractInput reads an extraction request. The body is either
// an HTML document or an [extractInput] JSON object.
func readExtractInput(r *http.Request) (*extractInput, error) {
	in := new(extractInput)
	contentType := r.Header.Get("Content-Type")
	mt, _, _ := mime.ParseMediaType(contentType)

	switch mt {
	case "application/json":
		if err := decodeJSON(r.Body, in); err != nil {
			return nil, err
		}
	case "text/html", "application/xhtml+xml":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			if in.HTML, err = extract.DecodePage(body, contentType); err != nil {
				return nil, newHTTPError(http.StatusBadRequest, err)
			}
		}

		q := r.URL.Query()
		in.BaseURL = q.Get("base")
		in.TwitterFallback, _ = strconv.ParseBool(q.Get("twitter_fallback"))
		for _, x := range q["format"] {
			in.Formats = append(in.Formats, strings.Split(x, ",")...)
		}
	default:
		return nil, errUnsupportedMediaType(mt)
	}

	if in.HTML == "" && in.URL == "" {
		return nil, extract.ErrMissingInput
	}
	return in, nil
}

// setFormats checks the input's format names. An input without
// formats runs the configured ones.
func (in *extractInput) setFormats() error {
	in.formats = []extract.Format{}
	for _, name := range in.Formats {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, err := extract.ParseFormat(name)
		if err != nil {
			return newHTTPError(http.StatusBadRequest, err)
		}
		in.formats = append(in.formats, f)
	}

	if len(in.formats) == 0 {
		in.formats = configFormats()
	}
	return nil
}

// cacheKey returns the input's cache key. A document given by URL
// is keyed by its URL so that a cached result is not fetched again.
func (in *extractInput) cacheKey() string {
	names := make([]string, len(in.formats))
	for i, f := range in.formats {
		names[i] = string(f)
	}

	src := "html:" + in.HTML
	if in.HTML == "" {
		src = "url:" + in.URL
	}
	return cache.Key(
		src, in.BaseURL,
		strings.Join(names, ","),
		in.Manifest,
		strconv.FormatBool(in.TwitterFallback),
	)
}

func decodeJSON(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if err == nil {
		return nil
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return newHTTPError(http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
}

func errUnsupportedMediaType(mt string) error {
	return newHTTPError(http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", mt))
}
