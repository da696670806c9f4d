// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
)

const (
	gzipEtagSuffix = "-gzip"
)

// CannonicalPaths cleans the URL path and removes trailing slashes.
// It returns a 308 redirection so any form will pass through.
func CannonicalPaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p string
		rctx := chi.RouteContext(r.Context())
		if rctx != nil && rctx.RoutePath != "" {
			p = rctx.RoutePath
		} else {
			p = r.URL.Path
		}

		if len(p) > 1 {
			p2 := path.Clean(p)
			if p != p2 {
				if r.URL.RawQuery != "" {
					p2 = fmt.Sprintf("%s?%s", p2, r.URL.RawQuery)
				}
				http.Redirect(w, r, fmt.Sprintf("//%s%s", r.Host, p2), http.StatusPermanentRedirect)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// CompressResponse returns a gzipped response for JSON content.
// It uses gzhttp that provides a BREACH mittigation.
func CompressResponse(next http.Handler) http.Handler {
	w, err := gzhttp.NewWrapper(
		gzhttp.CompressionLevel(5),
		gzhttp.ContentTypes([]string{
			"application/json", "text/plain",
		}),
		gzhttp.SuffixETag(gzipEtagSuffix),
		gzhttp.MinSize(1024),
		gzhttp.RandomJitter(32, 0, false),
	)
	if err != nil {
		panic(err)
	}
	return w(next)
}

// MaxBodySize limits the size of the request body. Reading past
// the limit fails with an [*http.MaxBytesError].
func MaxBodySize(size int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if size > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ErrorPages is a middleware that overrides the response writer so
// that the plain text errors, such as the router's 404 and 405, are
// sent as a JSON [Message].
//
// Conditions are: response status must be >= 400, its content-type
// is text/plain and it has some content.
func ErrorPages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&responseWriterInterceptor{ResponseWriter: w}, r)
	})
}

type responseWriterInterceptor struct {
	http.ResponseWriter
	contentType string
	statusCode  int
}

// needsOverride returns true when a content-type is text/plain and status >= 400.
func (w *responseWriterInterceptor) needsOverride() bool {
	return w.contentType == "text/plain" && w.statusCode >= 400
}

// WriteHeader intercepts the status code sent to the writter and saves some
// information if needed.
func (w *responseWriterInterceptor) WriteHeader(statusCode int) {
	defer func() {
		w.ResponseWriter.WriteHeader(statusCode)
	}()

	if statusCode < 400 { // immediate shortcut
		return
	}
	w.statusCode = statusCode

	if w.contentType == "" {
		w.contentType = "text/plain"
		ct := strings.SplitN(w.Header().Get("content-type"), ";", 2)
		if ct[0] != "" {
			w.contentType = ct[0]
		}
	}

	if w.needsOverride() {
		w.ResponseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.ResponseWriter.Header().Del("Content-Length")
	}
}

// Write overrides the wrapped Write method to discard all contents and
// send its own response when it needs to.
func (w *responseWriterInterceptor) Write(c []byte) (int, error) {
	if !w.needsOverride() {
		return w.ResponseWriter.Write(c)
	}

	b, _ := json.Marshal(Message{
		Status:  w.statusCode,
		Message: http.StatusText(w.statusCode),
	})
	if _, err := w.ResponseWriter.Write(b); err != nil {
		return 0, err
	}

	// The caller's content is discarded.
	w.contentType = "application/json"
	return len(c), nil
}
