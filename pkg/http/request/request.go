// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package request provides a middleware that identifies a request and
// its client, possibly behind trusted reverse proxies.
package request

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"hash/adler32"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"codeberg.org/readeck/metaextract/pkg/ctxr"
)

type (
	ctxRemoteIPKey  struct{}
	ctxRealIPKey    struct{}
	ctxRequestIDKey struct{}
)

var (
	// GetRemoteIP returns the request's [http.Request.RemoteAddr] as
	// a [net.IP] without its port.
	GetRemoteIP  = ctxr.Getter[net.IP](ctxRemoteIPKey{})
	withRemoteIP = ctxr.Setter[net.IP](ctxRemoteIPKey{})

	// GetRealIP returns the request's client real IP address
	// base on the "X-Forwarded-For" header. It fallbacks to [http.Request.RemoteAddr].
	GetRealIP  = ctxr.Getter[net.IP](ctxRealIPKey{})
	withRealIP = ctxr.Setter[net.IP](ctxRealIPKey{})

	// CheckReqID returns the request's ID, if any.
	CheckReqID = ctxr.Checker[string](ctxRequestIDKey{})
	withReqID  = ctxr.Setter[string](ctxRequestIDKey{})
)

// RequestIDHeader is the header holding a request ID set
// by a trusted proxy.
const RequestIDHeader = "X-Request-Id"

var (
	reqid       uint32
	reqIDPrefix [13]byte
)

func init() {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "localhost"
	}

	var b [6]byte
	rand.Read(b[4:])
	cs := adler32.New()
	cs.Write([]byte(hostname))
	copy(b[0:4], cs.Sum(nil))

	reqIDPrefix[8] = '/'
	hex.Encode(reqIDPrefix[0:8], b[0:4])
	hex.Encode(reqIDPrefix[9:], b[4:])
}

// makeRequestID creates request ID.
// A request ID is a string of the form "host-checksum/random-seq",
// where "host-checksum" is an adler32 checksum of the host name (4 bytes),
// "random" is a 2 byte random value and "seq" a sequence number.
func makeRequestID() string {
	var id [22]byte
	copy(id[0:13], reqIDPrefix[:])
	id[13] = '-'

	hex.Encode(id[14:], binary.BigEndian.AppendUint32(nil, atomic.AddUint32(&reqid, 1)))
	return string(id[:])
}

// GetReqID returns the request's ID, or an empty string.
func GetReqID(r *http.Request) string {
	id, _ := CheckReqID(r.Context())
	return id
}

// InitRequest adds the remote address (without port), the real client IP
// and a request ID to the request's context.
//
// The real IP and an incoming request ID are only read from the
// X-Forwarded-For and X-Request-Id headers when the remote address is
// in one of trustedProxies.
func InitRequest(trustedProxies ...*net.IPNet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			remoteAddr, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				remoteAddr = r.RemoteAddr
			}
			remoteIP := net.ParseIP(remoteAddr)
			ctx = withRemoteIP(ctx, remoteIP)

			isTrusted := isTrustedProxy(trustedProxies, remoteIP)

			if isTrusted {
				// The first address from the right that's not a proxy
				ips := parseXForwardedFor(r.Header)
				for _, ip := range slices.Backward(ips) {
					if isTrustedProxy(trustedProxies, ip) {
						continue
					}
					remoteIP = ip
					break
				}
			}
			ctx = withRealIP(ctx, remoteIP)

			id := ""
			if isTrusted {
				id = strings.TrimSpace(r.Header.Get(RequestIDHeader))
			}
			if id == "" || len(id) > 64 {
				id = makeRequestID()
			}
			ctx = withReqID(ctx, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseXForwardedFor returns the valid addresses of every
// X-Forwarded-For header, in order.
func parseXForwardedFor(h http.Header) []net.IP {
	res := []net.IP{}
	for _, v := range h.Values("X-Forwarded-For") {
		for s := range strings.SplitSeq(v, ",") {
			s = strings.Trim(strings.TrimSpace(s), "[]")
			if ip := net.ParseIP(s); ip != nil {
				res = append(res, ip)
			}
		}
	}
	return res
}

func isTrustedProxy(p []*net.IPNet, ip net.IP) bool {
	return slices.ContainsFunc(p, func(cidr *net.IPNet) bool {
		return cidr.Contains(ip)
	})
}
