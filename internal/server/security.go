// SPDX-FileCopyrightText: © 2021 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"net/http"
	"strings"

	"codeberg.org/readeck/metaextract/pkg/http/request"
)

// contentPolicy is the Content Security Policy of every response.
// The API never serves documents, so nothing may load.
var contentPolicy = strings.Join([]string{
	"default-src 'none'",
	"base-uri 'none'",
	"form-action 'none'",
	"frame-ancestors 'none'",
}, "; ")

// SetSecurityHeaders adds some headers to improve client side security.
func SetSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", contentPolicy)
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Add("X-Frame-Options", "DENY")
		w.Header().Add("X-Content-Type-Options", "nosniff")
		w.Header().Add("X-Robots-Tag", "noindex, nofollow, noarchive")
		w.Header().Set("Cache-Control", "no-store")

		if id, ok := request.CheckReqID(r.Context()); ok {
			w.Header().Set(request.RequestIDHeader, id)
		}

		next.ServeHTTP(w, r)
	})
}
