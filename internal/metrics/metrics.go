// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics exposes the server and extraction metrics in the
// Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeberg.org/readeck/metaextract/pkg/extract"
)

const namespace = "metaextract"

var registry = prometheus.NewRegistry()

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests, by method and status code.",
	}, []string{"method", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request durations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	formatRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "extract",
		Name:      "format_runs_total",
		Help:      "Number of format runs, by format and outcome (found, empty, error).",
	}, []string{"format", "outcome"})

	formatDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "extract",
		Name:      "format_duration_seconds",
		Help:      "Format run durations.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"format"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		formatRuns,
		formatDuration,
	)
}

// Handler returns the metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Middleware counts and times the HTTP requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveFormat is an [extract.Observer] that records every format run.
func ObserveFormat(f extract.Format, elapsed time.Duration, found bool, err error) {
	outcome := "empty"
	switch {
	case err != nil:
		outcome = "error"
	case found:
		outcome = "found"
	}

	formatRuns.WithLabelValues(string(f), outcome).Inc()
	formatDuration.WithLabelValues(string(f)).Observe(elapsed.Seconds())
}
