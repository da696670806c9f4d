// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// printer writes a sequence of JSON documents, in JSON or YAML,
// optionally through a jq filter.
type printer struct {
	w      io.Writer
	format string
	query  *gojq.Code
	yaml   *yaml.Encoder
}

func newPrinter(w io.Writer, format, query string) (*printer, error) {
	p := &printer{w: w, format: format}
	switch format {
	case outputJSON:
	case outputYAML:
		p.yaml = yaml.NewEncoder(w)
		p.yaml.SetIndent(2)
	default:
		return nil, fmt.Errorf("invalid output format %q", format)
	}

	if query != "" {
		q, err := gojq.Parse(query)
		if err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
		if p.query, err = gojq.Compile(q); err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
	}
	return p, nil
}

// print writes one JSON document. With a query, it writes every
// value the query emits.
func (p *printer) print(data []byte) error {
	if p.query == nil {
		return p.write(data)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	iter := p.query.Run(v)
	for {
		x, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := x.(error); isErr {
			return err
		}

		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		if err = p.write(b); err != nil {
			return err
		}
	}
}

func (p *printer) write(data []byte) error {
	if p.format == outputYAML {
		node, err := yamlNode(data)
		if err != nil {
			return err
		}
		return p.yaml.Encode(node)
	}

	buf := new(bytes.Buffer)
	if err := json.Indent(buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(p.w)
	return err
}

// close flushes the YAML stream.
func (p *printer) close() error {
	if p.yaml != nil {
		return p.yaml.Close()
	}
	return nil
}

// yamlNode reads a JSON text into a YAML node, keeping the member
// order, and resets the node styles so it's written in block style.
func yamlNode(data []byte) (*yaml.Node, error) {
	node := new(yaml.Node)
	if err := yaml.Unmarshal(data, node); err != nil {
		return nil, err
	}
	resetStyle(node)
	return node, nil
}

func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}
