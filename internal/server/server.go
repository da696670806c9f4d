// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package server is the metaextract HTTP server.
// It defines the common middlewares and the extraction API.
package server

import (
	"log/slog"
	"net/http"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/readeck/metaextract/configs"
	"codeberg.org/readeck/metaextract/internal/cache"
	"codeberg.org/readeck/metaextract/internal/metrics"
	"codeberg.org/readeck/metaextract/pkg/extract"
	"codeberg.org/readeck/metaextract/pkg/http/request"
)

// Server is a wrapper around chi router.
type Server struct {
	*chi.Mux
	client *http.Client
	cache  *cache.Cache
}

// New create a new server. Routes must be added with [Server.Init]
// before calling ListenAndServe.
// The client retrieves the documents given by URL and the cache,
// which can be nil, keeps the extraction results.
func New(client *http.Client, c *cache.Cache) *Server {
	s := &Server{
		Mux:    chi.NewRouter(),
		client: client,
		cache:  c,
	}

	s.Use(
		middleware.Recoverer,
		request.InitRequest(configs.TrustedProxies()...),
		Logger(),
	)
	if configs.Config.Metrics.Enabled {
		s.Use(metrics.Middleware)
	}
	s.Use(
		SetSecurityHeaders,
		CompressResponse,
		CannonicalPaths,
		ErrorPages,
	)

	return s
}

// Init adds the server's routes.
func (s *Server) Init() {
	s.AddRoute("/api", s.apiRoutes())

	if configs.Config.Metrics.Enabled {
		s.Mux.Method(http.MethodGet, path.Join("/", configs.Config.Server.Prefix, "/metrics"), metrics.Handler())
	}
}

// AddRoute adds a new route to the server, prefixed with
// the configured prefix.
func (s *Server) AddRoute(pattern string, handler http.Handler) {
	s.Mount(path.Join("/", configs.Config.Server.Prefix, pattern), handler)
}

// infoRoutes returns the route returning the service information.
func infoRoutes() http.Handler {
	r := chi.NewRouter()

	type versionInfo struct {
		Canonical string    `json:"canonical"`
		Release   string    `json:"release"`
		Build     string    `json:"build"`
		Library   string    `json:"library"`
		BuildDate time.Time `json:"build_date"`
		GoVersion string    `json:"go_version"`
	}

	type serviceInfo struct {
		Version versionInfo      `json:"version"`
		Formats []extract.Format `json:"formats"`
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		canonical := configs.Version()
		release, build, _ := strings.Cut(canonical, "-")

		res := serviceInfo{
			Version: versionInfo{
				Canonical: canonical,
				Release:   release,
				Build:     build,
				Library:   extract.Version(),
				BuildDate: configs.BuildTime(),
				GoVersion: runtime.Version(),
			},
			Formats: extract.New(extract.WithFormats(configFormats()...)).Formats(),
		}

		Render(w, r, 200, res)
	})

	return r
}

// configFormats returns the configured formats. Unknown names were
// rejected when the configuration was loaded.
func configFormats() []extract.Format {
	res := []extract.Format{}
	for _, name := range configs.Config.Extractor.Formats {
		if f, err := extract.ParseFormat(name); err == nil {
			res = append(res, f)
		}
	}
	if len(res) == 0 {
		return extract.Formats
	}
	return res
}

// Log returns a log entry including the request ID.
func Log(r *http.Request) *slog.Logger {
	return slog.With(slog.String("@id", request.GetReqID(r)))
}
