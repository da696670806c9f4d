// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package manifest discovers and parses Web App Manifests.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

// ErrMalformed is returned when a manifest is not a JSON object.
var ErrMalformed = errors.New("malformed manifest JSON")

// Icon is a manifest image resource.
type Icon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes,omitempty"`
	Type    string `json:"type,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	Label   string `json:"label,omitempty"`
}

// Shortcut is a manifest shortcut item.
type Shortcut struct {
	Name        string `json:"name"`
	ShortName   string `json:"short_name,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Icons       []Icon `json:"icons,omitempty"`
}

// RelatedApplication is a platform specific application.
type RelatedApplication struct {
	Platform string `json:"platform"`
	URL      string `json:"url,omitempty"`
	ID       string `json:"id,omitempty"`
}

// Manifest is a parsed Web App Manifest.
// The typed fields are filled on a best effort basis; the JSON
// encoding is the whole manifest, in its original member order,
// with its URLs resolved.
type Manifest struct {
	Name                      string
	ShortName                 string
	Description               string
	StartURL                  string
	ID                        string
	Scope                     string
	Display                   string
	Orientation               string
	ThemeColor                string
	BackgroundColor           string
	Lang                      string
	Dir                       string
	Categories                []string
	Icons                     []Icon
	Screenshots               []Icon
	Shortcuts                 []Shortcut
	RelatedApplications       []RelatedApplication
	PreferRelatedApplications bool

	raw *value.Object
}

type typedManifest struct {
	Name                      string               `json:"name"`
	ShortName                 string               `json:"short_name"`
	Description               string               `json:"description"`
	StartURL                  string               `json:"start_url"`
	ID                        string               `json:"id"`
	Scope                     string               `json:"scope"`
	Display                   string               `json:"display"`
	Orientation               string               `json:"orientation"`
	ThemeColor                string               `json:"theme_color"`
	BackgroundColor           string               `json:"background_color"`
	Lang                      string               `json:"lang"`
	Dir                       string               `json:"dir"`
	Categories                []string             `json:"categories"`
	Icons                     []Icon               `json:"icons"`
	Screenshots               []Icon               `json:"screenshots"`
	Shortcuts                 []Shortcut           `json:"shortcuts"`
	RelatedApplications       []RelatedApplication `json:"related_applications"`
	PreferRelatedApplications bool                 `json:"prefer_related_applications"`
}

// Raw returns the manifest's ordered JSON object.
func (m *Manifest) Raw() *value.Object {
	return m.raw
}

// MarshalJSON implements [json.Marshaler].
func (m *Manifest) MarshalJSON() ([]byte, error) {
	if m.raw == nil {
		return []byte("{}"), nil
	}
	return m.raw.MarshalJSON()
}

// Parse parses a manifest. Its URLs are resolved against base,
// which may be nil.
func Parse(r io.Reader, base *url.URL) (*Manifest, error) {
	v, err := value.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	raw, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	if base != nil {
		resolveMembers(raw, base)
	}

	m := &Manifest{raw: raw}
	m.fill()
	return m, nil
}

// ParseString is like [Parse] with a text and an optional base URL.
func ParseString(text string, base string) (*Manifest, error) {
	u, err := document.ParseBaseURL(base)
	if err != nil {
		return nil, err
	}
	return Parse(strings.NewReader(text), u)
}

// fill sets the typed fields. Members with an unexpected type are
// left to their zero value.
func (m *Manifest) fill() {
	data, err := m.raw.MarshalJSON()
	if err != nil {
		return
	}

	t := typedManifest{}
	dec := json.NewDecoder(bytes.NewReader(data))
	_ = dec.Decode(&t)

	m.Name = t.Name
	m.ShortName = t.ShortName
	m.Description = t.Description
	m.StartURL = t.StartURL
	m.ID = t.ID
	m.Scope = t.Scope
	m.Display = t.Display
	m.Orientation = t.Orientation
	m.ThemeColor = t.ThemeColor
	m.BackgroundColor = t.BackgroundColor
	m.Lang = t.Lang
	m.Dir = t.Dir
	m.Categories = t.Categories
	m.Icons = t.Icons
	m.Screenshots = t.Screenshots
	m.Shortcuts = t.Shortcuts
	m.RelatedApplications = t.RelatedApplications
	m.PreferRelatedApplications = t.PreferRelatedApplications
}

func resolveMembers(o *value.Object, base *url.URL) {
	resolveString(o, "start_url", base)
	resolveString(o, "scope", base)
	resolveString(o, "id", base)

	eachObject(o, "icons", func(x *value.Object) {
		resolveString(x, "src", base)
	})
	eachObject(o, "screenshots", func(x *value.Object) {
		resolveString(x, "src", base)
	})
	eachObject(o, "shortcuts", func(x *value.Object) {
		resolveString(x, "url", base)
		eachObject(x, "icons", func(i *value.Object) {
			resolveString(i, "src", base)
		})
	})
	eachObject(o, "related_applications", func(x *value.Object) {
		resolveString(x, "url", base)
	})
}

func resolveString(o *value.Object, key string, base *url.URL) {
	s, ok := o.Get(key)
	if !ok {
		return
	}
	ref, ok := s.(string)
	if !ok {
		return
	}
	if u, err := base.Parse(strings.TrimSpace(ref)); err == nil {
		o.Set(key, u.String())
	}
}

func eachObject(o *value.Object, key string, fn func(*value.Object)) {
	v, _ := o.Get(key)
	l, _ := v.([]any)
	for _, x := range l {
		if item, ok := x.(*value.Object); ok {
			fn(item)
		}
	}
}
