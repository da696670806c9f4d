// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package testing provides tools to tests the HTTP routes.
package testing

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/kinbiko/jsonassert"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/configs"
	"codeberg.org/readeck/metaextract/internal/cache"
	"codeberg.org/readeck/metaextract/internal/server"
)

// TestApp holds a server with a default configuration, an in memory
// cache and an HTTP client whose transport is a mock.
type TestApp struct {
	Srv       *server.Server
	Cache     *cache.MemStore
	Transport *httpmock.MockTransport
}

// NewTestApp initializes TestApp with a default configuration.
// The configure functions, if any, change the configuration before
// the server is created.
func NewTestApp(t *testing.T, configure ...func()) *TestApp {
	configs.InitConfiguration()
	configs.Config.Main.LogLevel = slog.LevelError
	configs.Config.Metrics.Enabled = true
	for _, fn := range configure {
		fn()
	}
	t.Cleanup(configs.InitConfiguration)

	ta := &TestApp{
		Cache:     cache.NewMemStore(),
		Transport: httpmock.NewMockTransport(),
	}

	client := &http.Client{
		Transport: ta.Transport,
		Timeout:   time.Second,
	}

	ta.Srv = server.New(client, cache.New(ta.Cache, time.Minute))
	ta.Srv.Init()

	return ta
}

// Client creates a new [Client] instance.
func (ta *TestApp) Client() *Client {
	return &Client{
		app:    ta,
		URL:    &url.URL{Scheme: "http", Host: "metaextract.example.org"},
		Header: http.Header{},
	}
}

// Client is a thin HTTP client over the main server router.
type Client struct {
	app    *TestApp
	URL    *url.URL
	Header http.Header
}

// NewRequest creates a new [http.Request].
//
// body of types [io.Reader], []byte, string or nil are passed as is.
//
// Otherwise, the body is marshaled and the Content-Type is set to "application/json".
func (c *Client) NewRequest(method, target string, body any) (*http.Request, error) {
	header := http.Header{}
	maps.Copy(header, c.Header)

	var b io.Reader

	switch t := body.(type) {
	case io.Reader:
		b = t
	case []byte:
		b = bytes.NewReader(t)
	case string:
		b = strings.NewReader(t)
	case nil:
		b = nil
	default:
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(t); err != nil {
			return nil, err
		}
		b = buf
		header.Set("Content-Type", "application/json")
	}

	req := httptest.NewRequest(method, target, b)
	req.URL.Host = c.URL.Host
	req.URL.Scheme = c.URL.Scheme
	req.Host = c.URL.Host

	maps.Copy(req.Header, header)

	return req, nil
}

// Request performs a Request using httptest tools.
// It returns a Response instance that can be evaluated for testing
// purposes.
func (c *Client) Request(t *testing.T, req *http.Request) *Response {
	w := httptest.NewRecorder()
	c.app.Srv.ServeHTTP(w, req)

	rsp, err := NewResponse(w, req)
	if err != nil {
		t.Fatal(err)
	}
	return rsp
}

// RT prepares a [RequestTest] and returns a function that receives a [testing.T]
// variable, runs the request and performs the assertions.
func (c *Client) RT(options ...TestOption) func(t *testing.T) bool {
	return func(t *testing.T) bool {
		return c.Run(t, RT(options...))
	}
}

// Run runs the request from [RequestTest] and performs
// the assertions.
func (c *Client) Run(t *testing.T, rt *RequestTest) bool {
	return t.Run(rt.Name, func(t *testing.T) {
		req, err := c.NewRequest(rt.Method, rt.Target, rt.Body)
		if err != nil {
			t.Fatal(err)
		}
		for k, v := range rt.Header {
			req.Header[k] = v
		}
		rsp := c.Request(t, req)
		for _, f := range rt.Assert {
			f(t, rsp)
		}
	})
}

// Sequence returns a function that receives a [testing.T] variable and runs
// the given [RequestTest] list.
func (c *Client) Sequence(tests ...*RequestTest) func(t *testing.T) bool {
	return func(t *testing.T) bool {
		for _, rt := range tests {
			if !c.Run(t, rt) {
				return false
			}
		}
		return true
	}
}

type (
	// TestOption is an option for [RequestTest].
	TestOption func(rt *RequestTest)

	// RspAssertion is a [Response] assertion function.
	RspAssertion func(t *testing.T, rsp *Response)

	// RequestTest contains data that are used to perform requests.
	RequestTest struct {
		Name   string
		Method string
		Target string
		Body   any
		Header http.Header
		Assert []RspAssertion
	}
)

// RT creates a new [RequestTest].
func RT(options ...TestOption) *RequestTest {
	rt := &RequestTest{
		Method: http.MethodGet,
		Header: http.Header{},
	}

	for _, f := range options {
		f(rt)
	}

	if rt.Name == "" {
		rt.Name = rt.Method + "[" + rt.Target + "]"
	}

	return rt
}

// WithName sets the [RequestTest.Name].
func WithName(name string) TestOption {
	return func(rt *RequestTest) {
		rt.Name = name
	}
}

// WithMethod sets the [RequestTest.Method].
func WithMethod(method string) TestOption {
	return func(rt *RequestTest) {
		rt.Method = method
	}
}

// WithTarget sets the [RequestTest.Target].
func WithTarget(target string) TestOption {
	return func(rt *RequestTest) {
		rt.Target = target
	}
}

// WithBody sets the [RequestTest.Body].
func WithBody(body any) TestOption {
	return func(rt *RequestTest) {
		rt.Body = body
	}
}

// WithHTML sets an HTML [RequestTest.Body] and its content type.
func WithHTML(body string) TestOption {
	return func(rt *RequestTest) {
		rt.Body = body
		rt.Header.Set("Content-Type", "text/html; charset=utf-8")
	}
}

// WithHeader adds a value to [RequestTest.Header].
func WithHeader(name, value string) TestOption {
	return func(rt *RequestTest) {
		rt.Header.Add(name, value)
	}
}

// WithAssert adds an [RspAssertion] to the [RequestTest.Assert].
func WithAssert(assertion RspAssertion) TestOption {
	return func(rt *RequestTest) {
		rt.Assert = append(rt.Assert, assertion)
	}
}

// AssertStatus checks the response's expected status.
func AssertStatus(status int) TestOption {
	return WithAssert(func(t *testing.T, rsp *Response) {
		rsp.AssertStatus(t, status)
	})
}

// AssertHeader checks a response's header value.
func AssertHeader(name, expected string) TestOption {
	return WithAssert(func(t *testing.T, rsp *Response) {
		require.Equal(t, expected, rsp.Header.Get(name))
	})
}

// AssertContains checks that the response's body contains the expected string.
func AssertContains(expected string) TestOption {
	return WithAssert(func(t *testing.T, rsp *Response) {
		rsp.AssertContains(t, expected)
	})
}

// AssertJSON checks that the response's JSON matches what we expect.
func AssertJSON(expected string) TestOption {
	return WithAssert(func(t *testing.T, rsp *Response) {
		rsp.AssertJSON(t, expected)
	})
}

// AssertBody checks that the response's body is exactly what
// we expect.
func AssertBody(expected string) TestOption {
	return WithAssert(func(t *testing.T, rsp *Response) {
		AssertText(t, expected, string(rsp.Body))
	})
}

// Response is a wrapper around http.Response where the body is stored and
// the JSON (when applicable) is decoded in advance.
type Response struct {
	*http.Response
	Body []byte
	JSON any
}

// NewResponse returns a Response instance based on the ResponseRecorder
// given in input.
func NewResponse(rec *httptest.ResponseRecorder, req *http.Request) (*Response, error) {
	var err error
	r := &Response{Response: rec.Result()} //nolint:bodyclose
	r.Request = req

	r.Body, err = io.ReadAll(r.Response.Body)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(r.Header.Get("content-type"), "application/json") && len(r.Body) > 0 {
		if err = json.Unmarshal(r.Body, &r.JSON); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// AssertStatus checks the response's expected status.
func (r *Response) AssertStatus(t *testing.T, expected int) {
	require.Equal(t, expected, r.StatusCode, "body: %s", r.Body)
}

// AssertContains checks that the response's body contains the expected string.
func (r *Response) AssertContains(t *testing.T, expected string) {
	require.Contains(t, string(r.Body), expected)
}

// AssertJSON checks that the response's JSON matches what we expect.
func (r *Response) AssertJSON(t *testing.T, expected string) {
	jsonassert.New(t).Assertf(string(r.Body), "%s", expected)
	if t.Failed() {
		t.Errorf("Received JSON: %s\n", string(r.Body))
		t.FailNow()
	}
}

// AssertText fails with a unified diff when two texts differ.
func AssertText(t *testing.T, expected, actual string) {
	t.Helper()
	if expected == actual {
		return
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	t.Fatalf("texts differ:\n%s", diff)
}
