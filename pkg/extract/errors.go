// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"errors"
	"fmt"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/manifest"
)

// Code is a numeric error code. The values are stable and
// shared with the library's other bindings.
type Code int

// Error codes.
const (
	CodeOK Code = iota
	CodeParse
	CodeInvalidURL
	CodeInvalidUTF8
	CodeMemory
	CodeJSON
	CodeNullPointer
)

var codeNames = [...]string{
	CodeOK:          "ok",
	CodeParse:       "parse_error",
	CodeInvalidURL:  "invalid_url",
	CodeInvalidUTF8: "invalid_utf8",
	CodeMemory:      "memory_error",
	CodeJSON:        "json_error",
	CodeNullPointer: "null_pointer",
}

var codeMessages = [...]string{
	CodeOK:          "No error",
	CodeParse:       "HTML parsing error",
	CodeInvalidURL:  "Invalid URL format",
	CodeInvalidUTF8: "Invalid UTF-8 string",
	CodeMemory:      "Memory allocation error",
	CodeJSON:        "JSON serialization error",
	CodeNullPointer: "NULL pointer passed as argument",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return codeNames[c]
}

// Message returns the human readable message of an error code.
func Message(c Code) string {
	if c < 0 || int(c) >= len(codeMessages) {
		return "Unknown error"
	}
	return codeMessages[c]
}

// Error is an extraction error with its code.
type Error struct {
	Code Code
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

var (
	// ErrMissingInput is returned when a required text argument is empty.
	ErrMissingInput = &Error{CodeNullPointer, "missing input"}

	// ErrInvalidText is returned when the input is not valid UTF-8 text.
	ErrInvalidText = &Error{CodeInvalidUTF8, "invalid UTF-8 text"}

	// ErrInvalidURL is returned when the base URL is not an absolute URL.
	ErrInvalidURL = &Error{CodeInvalidURL, "invalid base URL"}

	// ErrMalformedManifest is returned when a manifest is not a JSON object.
	ErrMalformedManifest = &Error{CodeJSON, "malformed manifest JSON"}

	// ErrInternal is returned on an unexpected failure.
	ErrInternal = &Error{CodeParse, "internal error"}
)

// CodeOf returns the code of an error. A nil error is [CodeOK] and
// an error without a code is [CodeParse].
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeParse
}

// inputError converts the errors of the document and manifest
// packages to their extraction error.
func inputError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, document.ErrInvalidText):
		return fmt.Errorf("%w: %w", ErrInvalidText, err)
	case errors.Is(err, document.ErrInvalidURL):
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	case errors.Is(err, manifest.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
