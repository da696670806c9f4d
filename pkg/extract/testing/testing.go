// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package testing provides HTTP mock responders for the fetching tests.
package testing

import (
	"errors"
	"net/http"

	"github.com/jarcoal/httpmock"
)

// NewContentResponder returns a mock response with a body and extra headers.
func NewContentResponder(status int, headers map[string]string, body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		rsp := httpmock.NewStringResponse(status, body)
		for k, v := range headers {
			rsp.Header.Set(k, v)
		}
		rsp.Request = req
		return rsp, nil
	}
}

// NewHTMLResponder returns a mock response with an HTML content-type.
func NewHTMLResponder(status int, body string) httpmock.Responder {
	return NewContentResponder(
		status,
		map[string]string{"content-type": "text/html; charset=utf-8"},
		body)
}

// NewJSONResponder returns a mock response with a JSON content-type.
func NewJSONResponder(status int, contentType string, body string) httpmock.Responder {
	if contentType == "" {
		contentType = "application/json"
	}
	return NewContentResponder(
		status,
		map[string]string{"content-type": contentType},
		body)
}

type errReader int

func (errReader) Read([]byte) (n int, err error) {
	return 0, errors.New("read error")
}

func (errReader) Close() error {
	return nil
}

// NewIOErrorResponder returns a mock response with a faulty body.
func NewIOErrorResponder(status int, headers map[string]string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		rsp := httpmock.NewBytesResponse(status, []byte{})
		for k, v := range headers {
			rsp.Header.Set(k, v)
		}
		rsp.Request = req
		rsp.Body = errReader(0)
		return rsp, nil
	}
}
