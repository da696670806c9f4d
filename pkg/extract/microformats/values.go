// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package microformats

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

var (
	rxDate       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	rxOrdinal    = regexp.MustCompile(`^\d{4}-\d{3}$`)
	rxDatePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{4}-\d{3})`)
	rxTimeOnly   = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}`)
	rxClock      = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?(?::(\d{2}))?\s*(?:([ap])\.?m\.?)?\s*(z|[+-]\d{2}:?\d{2}|[+-]\d{2})?$`)
	rxZone       = regexp.MustCompile(`(?i)^(z|[+-]\d{2}:?\d{2}|[+-]\d{2})$`)
	rxHasZone    = regexp.MustCompile(`(?i)(z|[+-]\d{2}:?\d{2}|[+-]\d{2}|\s(utc|gmt))$`)
)

// textValue returns the value of a p-* property.
func (p *parser) textValue(n *html.Node) string {
	if parts, ok := valueClass(n, false); ok {
		return strings.Join(parts, "")
	}

	switch {
	case document.IsElement(n, atom.Abbr, atom.Link):
		if v, ok := document.Attr(n, "title"); ok {
			return v
		}
	case document.IsElement(n, atom.Data, atom.Input):
		if v, ok := document.Attr(n, "value"); ok {
			return v
		}
	case document.IsElement(n, atom.Img, atom.Area):
		if v, ok := document.Attr(n, "alt"); ok {
			return strings.TrimSpace(v)
		}
	}
	return document.TextContent(n)
}

// urlValue returns the value of a u-* property.
func (p *parser) urlValue(n *html.Node) string {
	var attrs []string
	switch {
	case document.IsElement(n, atom.A, atom.Area, atom.Link):
		attrs = []string{"href"}
	case document.IsElement(n, atom.Img, atom.Audio, atom.Source, atom.Iframe):
		attrs = []string{"src"}
	case document.IsElement(n, atom.Video):
		attrs = []string{"src", "poster"}
	case document.IsElement(n, atom.Object):
		attrs = []string{"data"}
	}
	for _, name := range attrs {
		if v, ok := document.Attr(n, name); ok {
			return p.doc.Resolve(v)
		}
	}

	if parts, ok := valueClass(n, false); ok {
		return strings.Join(parts, "")
	}

	switch {
	case document.IsElement(n, atom.Abbr):
		if v, ok := document.Attr(n, "title"); ok {
			return p.doc.Resolve(v)
		}
	case document.IsElement(n, atom.Data, atom.Input):
		if v, ok := document.Attr(n, "value"); ok {
			return p.doc.Resolve(v)
		}
	}
	return document.TextContent(n)
}

// dateValue returns the value of a dt-* property. A time without
// a date takes the date of the item's previous dt-* property.
func (p *parser) dateValue(n *html.Node, st *itemState) string {
	var res string
	if parts, ok := valueClass(n, true); ok {
		res = combineDateTime(parts)
	} else {
		res = normalizeDateTime(dateSource(n))
	}

	if rxTimeOnly.MatchString(res) && st.lastDate != "" {
		res = st.lastDate + "T" + res
	}
	if m := rxDatePrefix.FindString(res); m != "" {
		st.lastDate = m
	}
	return res
}

func dateSource(n *html.Node) string {
	switch {
	case document.IsElement(n, atom.Time, atom.Ins, atom.Del):
		if v, ok := document.Attr(n, "datetime"); ok {
			return strings.TrimSpace(v)
		}
	case document.IsElement(n, atom.Abbr):
		if v, ok := document.Attr(n, "title"); ok {
			return strings.TrimSpace(v)
		}
	case document.IsElement(n, atom.Data, atom.Input):
		if v, ok := document.Attr(n, "value"); ok {
			return strings.TrimSpace(v)
		}
	}
	return document.TextContent(n)
}

// valueClass collects the parts of the value class pattern found
// under n. It returns false when n doesn't use the pattern.
func valueClass(n *html.Node, dt bool) ([]string, bool) {
	parts := []string{}
	found := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := range document.Children(n) {
			if isRoot(c) {
				continue
			}
			switch {
			case document.HasClass(c, "value-title"):
				found = true
				if v, ok := document.Attr(c, "title"); ok {
					parts = append(parts, strings.TrimSpace(v))
				}
			case document.HasClass(c, "value"):
				found = true
				if v := valuePart(c, dt); v != "" {
					parts = append(parts, v)
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)

	return parts, found
}

func valuePart(n *html.Node, dt bool) string {
	switch {
	case document.IsElement(n, atom.Img, atom.Area):
		v, _ := document.Attr(n, "alt")
		return strings.TrimSpace(v)
	case document.IsElement(n, atom.Data):
		if v, ok := document.Attr(n, "value"); ok {
			return strings.TrimSpace(v)
		}
	case document.IsElement(n, atom.Abbr):
		if v, ok := document.Attr(n, "title"); ok {
			return strings.TrimSpace(v)
		}
	case dt && document.IsElement(n, atom.Del, atom.Ins, atom.Time):
		if v, ok := document.Attr(n, "datetime"); ok {
			return strings.TrimSpace(v)
		}
	}
	return document.TextContent(n)
}

// combineDateTime builds a date-time from value class parts, using
// the first date, the first time and the first timezone found.
func combineDateTime(parts []string) string {
	var date, clock, zone string
	for _, part := range parts {
		switch {
		case date == "" && (rxDate.MatchString(part) || rxOrdinal.MatchString(part)):
			date = part
		case zone == "" && rxZone.MatchString(part):
			zone = normalizeZone(part)
		case clock == "":
			if t, ok := normalizeTime(part); ok {
				clock = t
			}
		}
	}

	switch {
	case date != "" && clock != "":
		return date + "T" + clock + zone
	case date != "":
		return date
	case clock != "":
		return clock + zone
	case len(parts) == 1:
		return normalizeDateTime(parts[0])
	}
	return strings.Join(parts, "")
}

// normalizeTime converts a time, either on a 24 hours clock or
// with an am/pm suffix, to HH:MM:SS, followed by its timezone.
func normalizeTime(s string) (string, bool) {
	m := rxClock.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	// A lone number is only a time with an am/pm suffix.
	if m[2] == "" && m[4] == "" {
		return "", false
	}

	h, _ := strconv.Atoi(m[1])
	mn, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	switch strings.ToLower(m[4]) {
	case "p":
		if h < 12 {
			h += 12
		}
	case "a":
		if h == 12 {
			h = 0
		}
	}
	if h > 23 || mn > 59 || sec > 59 {
		return "", false
	}

	res := fmt.Sprintf("%02d:%02d:%02d", h, mn, sec)
	if m[5] != "" {
		res += normalizeZone(m[5])
	}
	return res, true
}

// normalizeZone returns a timezone as Z or ±HH:MM.
func normalizeZone(s string) string {
	if strings.EqualFold(s, "z") {
		return "Z"
	}
	s = strings.ReplaceAll(s, ":", "")
	if len(s) == 3 {
		s += "00"
	}
	return s[:3] + ":" + s[3:]
}

// normalizeDateTime returns a date or date-time as an ISO 8601 string.
// Values that can't be parsed are returned as is.
func normalizeDateTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || rxDate.MatchString(s) || rxOrdinal.MatchString(s) {
		return s
	}
	if t, ok := normalizeTime(s); ok {
		return t
	}
	if date, clock, ok := splitDateTime(s); ok {
		return date + "T" + clock
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return s
	}
	switch {
	case !strings.Contains(s, ":") && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0:
		return t.Format(time.DateOnly)
	case rxHasZone.MatchString(s):
		return t.Format(time.RFC3339)
	}
	return t.Format("2006-01-02T15:04:05")
}

// splitDateTime reads a date followed by a time, as in "March 3, 2024 10am"
// or "2024-03-03 5 pm". It returns the normalized date and time.
func splitDateTime(s string) (string, string, bool) {
	fields := strings.Fields(s)
	for i := 1; i < len(fields) && i <= 3; i++ {
		head := strings.Join(fields[:len(fields)-i], " ")
		clock, ok := normalizeTime(strings.Join(fields[len(fields)-i:], " "))
		if !ok {
			continue
		}
		if rxDate.MatchString(head) || rxOrdinal.MatchString(head) {
			return head, clock, true
		}
		t, err := dateparse.ParseIn(head, time.UTC)
		if err != nil || t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
			continue
		}
		return t.Format(time.DateOnly), clock, true
	}
	return "", "", false
}
