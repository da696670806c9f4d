// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package value provides the intermediate value model every extractor
// builds before serialization.
//
// A value is one of nil, bool, float64 or [json.Number], string,
// []any or *[Object]. Objects keep their keys in insertion order so that
// the JSON output only depends on the document being parsed.
package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
)

var errTrailingData = errors.New("invalid character after top-level value")

// Object is a string keyed map that remembers insertion order.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty [Object].
func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Set inserts or replaces a value. A replaced key keeps its position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// SetDefault sets a value only when the key is not present yet.
func (o *Object) SetDefault(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.Set(key, v)
	}
}

// Append adds a value to the list stored under key, creating it
// when needed.
func (o *Object) Append(key string, v any) {
	cur, ok := o.values[key]
	if !ok {
		o.Set(key, []any{v})
		return
	}
	if l, ok := cur.([]any); ok {
		o.values[key] = append(l, v)
		return
	}
	o.values[key] = []any{cur, v}
}

// Get returns the value for a key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// GetString returns the value for a key when it's a string.
func (o *Object) GetString(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// GetObject returns the value for a key when it's an [Object].
func (o *Object) GetObject(key string) *Object {
	v, _ := o.Get(key)
	x, _ := v.(*Object)
	return x
}

// Delete removes a key.
func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
}

// Keys returns an iterator over the object keys, in insertion order.
func (o *Object) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		if o == nil {
			return
		}
		for _, k := range o.keys {
			if !yield(k) {
				return
			}
		}
	}
}

// All returns an iterator over key/value pairs, in insertion order.
func (o *Object) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if o == nil {
			return
		}
		for _, k := range o.keys {
			if !yield(k, o.values[k]) {
				return
			}
		}
	}
}

// MarshalJSON implements [json.Marshaler].
func (o *Object) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(o.values[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	x, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("cannot unmarshal %T into an object", v)
	}
	*o = *x
	return nil
}

// Marshal returns the JSON encoding of v, without HTML escaping
// and without a trailing new line.
func Marshal(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Decode reads exactly one JSON value from r. Objects are decoded
// as *[Object] and numbers as [json.Number].
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errTrailingData
		}
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}

	d, ok := t.(json.Delim)
	if !ok {
		return t, nil
	}

	switch d {
	case '{':
		o := NewObject()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			k, _ := kt.(string)
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			o.Set(k, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return o, nil
	case '[':
		l := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return l, nil
	}

	return nil, fmt.Errorf("unexpected delimiter %q", d)
}

// IsEmpty returns true for nil values, empty strings, empty lists
// and empty objects.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case interface{ Len() int }:
		return t.Len() == 0
	}
	return false
}
