// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/internal/metrics"
	"codeberg.org/readeck/metaextract/pkg/extract"
)

func scrape(t *testing.T) string {
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetrics(t *testing.T) {
	assert := require.New(t)

	metrics.ObserveFormat(extract.FormatRDFa, time.Millisecond, true, nil)
	metrics.ObserveFormat(extract.FormatTwitter, time.Millisecond, false, nil)
	metrics.ObserveFormat(extract.FormatMicrodata, time.Millisecond, false, errors.New("boom"))

	h := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/extract", nil))

	body := scrape(t)
	assert.Contains(body, `metaextract_extract_format_runs_total{format="rdfa",outcome="found"} 1`)
	assert.Contains(body, `metaextract_extract_format_runs_total{format="twitter",outcome="empty"} 1`)
	assert.Contains(body, `metaextract_extract_format_runs_total{format="microdata",outcome="error"} 1`)
	assert.Contains(body, `metaextract_extract_format_duration_seconds_count{format="rdfa"} 1`)
	assert.Contains(body, `metaextract_http_requests_total{code="418",method="POST"} 1`)
	assert.Contains(body, "go_goroutines")
}
