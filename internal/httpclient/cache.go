// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package httpclient

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// maxCacheEntrySize is the largest body kept by a [CacheTransport].
const maxCacheEntrySize = 1 << 20

// CacheTransport is a wrapper around [Transport] that keeps the
// successful GET responses in memory, for the lifetime of the client.
// Documents sharing a manifest or an oEmbed endpoint only fetch it once.
type CacheTransport struct {
	*Transport
	sync.RWMutex

	entries map[string]*cacheResource
}

type cacheResource struct {
	header http.Header
	body   []byte
}

// RoundTrip implements [http.RoundTripper].
// When an entry is found in the cache, it sends a response made out of it. Otherwise,
// it calls the wrapped RoundTrip method and stores its response.
func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.Transport.RoundTrip(req)
	}

	key := req.URL.String()
	if entry := t.getEntry(key); entry != nil {
		t.Log().Debug("cache hit", slog.String("url", key))

		b := bytes.NewReader(entry.body)
		return &http.Response{
			Status:        http.StatusText(http.StatusOK),
			StatusCode:    http.StatusOK,
			Header:        entry.header.Clone(),
			Request:       req,
			Body:          io.NopCloser(b),
			ContentLength: b.Size(),
		}, nil
	}

	rsp, err := t.Transport.RoundTrip(req)
	if err != nil || rsp.StatusCode != http.StatusOK {
		return rsp, err
	}

	body, err := io.ReadAll(io.LimitReader(rsp.Body, maxCacheEntrySize+1))
	rsp.Body.Close() //nolint:errcheck
	if err != nil {
		return nil, err
	}
	if len(body) <= maxCacheEntrySize {
		t.addEntry(key, rsp.Header, body)
	}
	rsp.Body = io.NopCloser(bytes.NewReader(body))
	rsp.ContentLength = int64(len(body))

	return rsp, nil
}

func (t *CacheTransport) addEntry(url string, header http.Header, body []byte) {
	t.Lock()
	defer t.Unlock()

	t.entries[url] = &cacheResource{
		header: header.Clone(),
		body:   body,
	}
}

func (t *CacheTransport) getEntry(url string) *cacheResource {
	t.RLock()
	defer t.RUnlock()

	return t.entries[url]
}

// NewCacheClient returns a new [http.Client] with a [CacheTransport] round tripper.
func NewCacheClient(options ...Option) (*http.Client, error) {
	client, err := New(options...)
	if err != nil {
		return nil, err
	}
	client.Transport = &CacheTransport{
		Transport: client.Transport.(*Transport),
		entries:   map[string]*cacheResource{},
	}

	return client, nil
}

// IsInCache returns true if a URL exists in an [http.Client] cache.
// If the client's transport is not a [CacheTransport] instance, it does nothing.
func IsInCache(client *http.Client, url string) bool {
	if t, ok := client.Transport.(*CacheTransport); ok {
		return t.getEntry(url) != nil
	}
	return false
}
