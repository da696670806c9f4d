// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/readeck/metaextract/pkg/extract"
)

// Message is used by the server's Message() method.
type Message struct {
	Status  int     `json:"status"`
	Message string  `json:"message"`
	Code    string  `json:"code,omitempty"`
	Errors  []error `json:"-"`
}

// Render converts any value to JSON and sends the response.
func Render(w http.ResponseWriter, r *http.Request, status int, value interface{}) {
	b := &bytes.Buffer{}
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		Log(r).Error("encoding error", slog.Any("err", err))
		http.Error(w, http.StatusText(500), 500)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	if status >= 100 {
		w.WriteHeader(status)
	}
	w.Write(b.Bytes()) //nolint:errcheck
}

// RenderJSON sends a JSON text as is.
func RenderJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck
}

// Msg sends a JSON formatted message response.
func Msg(w http.ResponseWriter, r *http.Request, message *Message) {
	Render(w, r, message.Status, message)

	if message.Status >= 400 {
		attrs := make([]slog.Attr, 1+len(message.Errors))
		attrs[0] = slog.Int("status", message.Status)
		for i, e := range message.Errors {
			attrs[i+1] = slog.Any("err", e)
		}
		level := slog.LevelDebug
		if message.Status >= 500 {
			level = slog.LevelError
		}
		Log(r).LogAttrs(context.Background(), level, message.Message, attrs...)
	}
}

// TextMsg sends a JSON formatted message response with a status and a message.
func TextMsg(w http.ResponseWriter, r *http.Request, status int, msg string) {
	Msg(w, r, &Message{
		Status:  status,
		Message: msg,
	})
}

// httpError is an error with its own HTTP status.
type httpError struct {
	status int
	err    error
}

func newHTTPError(status int, err error) error {
	return &httpError{status, err}
}

func (e *httpError) Error() string {
	return e.err.Error()
}

func (e *httpError) Unwrap() error {
	return e.err
}

// errorStatus returns the HTTP status of an error.
func errorStatus(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.status
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrFetch), errors.Is(err, extract.ErrNotHTML):
		return http.StatusBadGateway
	case errors.Is(err, extract.ErrMalformedManifest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrMissingInput),
		errors.Is(err, extract.ErrInvalidText),
		errors.Is(err, extract.ErrInvalidURL):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Err renders an error as a JSON [Message].
// The status comes from the error kind and the code is its
// extraction error code. Internal errors don't expose their
// message.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := &Message{
		Status:  status,
		Message: err.Error(),
		Code:    extract.CodeOf(err).String(),
		Errors:  []error{err},
	}
	if status >= 500 && status != http.StatusBadGateway {
		msg.Message = http.StatusText(status)
	}

	Msg(w, r, msg)
}
