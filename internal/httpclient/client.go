// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package httpclient provides the HTTP client that retrieves documents,
// manifests and oEmbed responses.
// Its [http.RoundTripper] adds default headers, logs every request and
// can refuse destinations in a list of denied networks.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"codeberg.org/readeck/metaextract/configs"
)

// ErrDeniedDestination is returned when a request's host resolves
// to a denied network.
var ErrDeniedDestination = errors.New("destination is not allowed")

const uaString = "Mozilla/5.0 (compatible; metaextract)"

var defaultDialer = net.Dialer{
	Timeout:   15 * time.Second,
	KeepAlive: 30 * time.Second,
}

var defaultTransport = &http.Transport{
	DialContext: defaultDialer.DialContext,
	Proxy:       http.ProxyFromEnvironment,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          50,
	MaxIdleConnsPerHost:   2,
	IdleConnTimeout:       30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// defaultHeaders are sent with every request that doesn't set them.
var defaultHeaders = http.Header{
	"User-Agent":      []string{uaString},
	"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	"Accept-Language": []string{"en-US,en;q=0.8"},
}

// Transport wraps an [http.RoundTripper].
type Transport struct {
	http.RoundTripper
	header    http.Header
	logger    *slog.Logger
	deniedIPs []*net.IPNet
}

// RoundTrip implements [http.RoundTripper].
// It checks that the destination is allowed, adds the default headers
// and logs (debug-10 level) every request.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.checkDestIP(r); err != nil {
		return nil, err
	}

	// Shallow copy, a RoundTripper must not modify the request.
	req := new(http.Request)
	*req = *r
	req.Header = req.Header.Clone()

	for k, values := range t.header {
		if _, ok := r.Header[textproto.CanonicalMIMEHeaderKey(k)]; !ok {
			req.Header[k] = values
		}
	}

	attrs := []slog.Attr{
		slog.Group("request",
			slog.String("url", req.URL.String()),
			slog.String("method", req.Method),
		),
	}

	now := time.Now()
	rsp, err := t.RoundTripper.RoundTrip(req)
	if err != nil {
		attrs = append(attrs, slog.Group("response",
			slog.Any("err", err),
		))
	} else {
		attrs = append(attrs, slog.Group("response",
			slog.Int("status", rsp.StatusCode),
			slog.String("content-type", rsp.Header.Get("Content-Type")),
		))
	}
	attrs = append(attrs, slog.Duration("time", time.Since(now)))
	t.Log().LogAttrs(context.Background(), slog.LevelDebug-10, "request", attrs...)

	return rsp, err
}

func (t *Transport) checkDestIP(r *http.Request) error {
	if len(t.deniedIPs) == 0 {
		return nil
	}

	hostname := r.URL.Hostname()
	host, err := idna.ToASCII(hostname)
	if err != nil {
		return fmt.Errorf("invalid hostname %s", hostname)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("cannot resolve %s", host)
	}

	for _, cidr := range t.deniedIPs {
		for _, ip := range ips {
			if cidr.Contains(ip) {
				return fmt.Errorf("%w: ip %s is blocked by rule %s", ErrDeniedDestination, ip, cidr)
			}
		}
	}

	return nil
}

// Log returns the transport's logger.
func (t *Transport) Log() *slog.Logger {
	return t.logger
}

// SetLogger sets the transport's logger.
func (t *Transport) SetLogger(l *slog.Logger) {
	t.logger = l
}

// SetHeader receives a function that can manipulate the
// transport's default headers.
func (t *Transport) SetHeader(fn func(h http.Header)) {
	fn(t.header)
}

// Option is a client option.
type Option func(c *http.Client, t *Transport) error

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(_ *http.Client, t *Transport) error {
		if ua != "" {
			t.header.Set("User-Agent", ua)
		}
		return nil
	}
}

// WithTimeout sets the client's timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *http.Client, _ *Transport) error {
		if d > 0 {
			c.Timeout = d
		}
		return nil
	}
}

// WithLogger sets the transport's logger.
func WithLogger(l *slog.Logger) Option {
	return func(_ *http.Client, t *Transport) error {
		if l != nil {
			t.logger = l
		}
		return nil
	}
}

// WithDeniedIPs refuses the requests to any host resolving in one
// of the given CIDR networks.
func WithDeniedIPs(cidrs ...string) Option {
	return func(_ *http.Client, t *Transport) error {
		for _, s := range cidrs {
			_, n, err := net.ParseCIDR(s)
			if err != nil {
				return err
			}
			t.deniedIPs = append(t.deniedIPs, n)
		}
		return nil
	}
}

// New returns a new client with an empty cookie storage and a [Transport] instance.
func New(options ...Option) (*http.Client, error) {
	cookies, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	t := &Transport{
		RoundTripper: defaultTransport.Clone(),
		header:       maps.Clone(defaultHeaders),
		logger:       slog.Default(),
	}
	client := &http.Client{
		Transport: t,
		Timeout:   20 * time.Second,
		Jar:       cookies,
	}

	for _, fn := range options {
		if err := fn(client, t); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// ConfigOptions returns the client options of the extractor configuration.
func ConfigOptions() []Option {
	return []Option{
		WithUserAgent(configs.Config.Extractor.UserAgent),
		WithTimeout(configs.Config.Extractor.Timeout.Duration()),
		WithDeniedIPs(configs.Config.Extractor.DeniedIPs...),
	}
}
