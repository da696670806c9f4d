// SPDX-FileCopyrightText: © 2021 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/readeck/metaextract/pkg/http/request"
)

// Logger is a middleware that logs requests.
// The response is logged at the info level, warn for client
// errors and error for server errors.
func Logger() func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&httpLogger{})
}

type httpLogger struct{}

func (sl *httpLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	attrs := httpAttrs{
		slog.String("@id", request.GetReqID(r)),
		slog.Group("request",
			slog.String("method", r.Method),
			slog.String("path", r.RequestURI),
			slog.String("proto", r.Proto),
			slog.String("remote_addr", request.GetRealIP(r.Context()).String()),
			slog.Int64("length", r.ContentLength),
			slog.String("user_agent", r.UserAgent()),
		),
	}
	slog.LogAttrs(context.Background(), slog.LevelDebug,
		"http "+r.Method,
		attrs...,
	)

	return attrs
}

type httpAttrs []slog.Attr

func (attrs httpAttrs) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	slog.LogAttrs(context.Background(), level,
		"http "+strconv.Itoa(status)+" "+http.StatusText(status),
		append(attrs,
			slog.Group("response",
				slog.Int("status", status),
				slog.Int("length", bytes),
				slog.Float64("elapsed_ms", float64(elapsed.Nanoseconds())/1000000.0),
			),
		)...,
	)
}

func (attrs httpAttrs) Panic(v interface{}, _ []byte) {
	slog.LogAttrs(context.Background(), slog.LevelError, "http panic",
		append(attrs, slog.Any("panic", v))...,
	)
}
