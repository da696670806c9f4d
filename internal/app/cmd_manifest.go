// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cristalhq/acmd"

	"codeberg.org/readeck/metaextract/internal/httpclient"
	"codeberg.org/readeck/metaextract/pkg/extract"
	"codeberg.org/readeck/metaextract/pkg/extract/manifest"
	"codeberg.org/readeck/metaextract/pkg/extract/value"
)

func init() {
	commands = append(commands, acmd.Command{
		Name:        "manifest",
		Description: "Parse a Web App Manifest",
		ExecFunc:    runManifest,
	})
}

func runManifest(ctx context.Context, args []string) error {
	var base, output, query string

	var flags appFlags
	fs := flags.Flags()
	// nolint: errcheck
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: manifest [arguments...] FILE|URL|-")
		fmt.Fprintln(fs.Output(), "  FILE|URL|-")
		fmt.Fprintln(fs.Output(), "    \tmanifest file, URL or standard input")
		fs.PrintDefaults()
	}
	fs.StringVar(&base, "base", "", "base URL of the manifest")
	fs.StringVar(&output, "o", outputJSON, "output format (json, yaml)")
	fs.StringVar(&query, "q", "", "jq filter applied on the manifest")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	src := strings.TrimSpace(fs.Arg(0))
	if src == "" {
		return errors.New("input is required")
	}

	if err := appPreRun(&flags); err != nil {
		return err
	}

	p, err := newPrinter(os.Stdout, output, query)
	if err != nil {
		return err
	}

	data, err := readManifest(ctx, src, base)
	if err != nil {
		return fmt.Errorf("%s: %w", extract.CodeOf(err), err)
	}

	if err = p.print(data); err != nil {
		return err
	}
	return p.close()
}

func readManifest(ctx context.Context, src, base string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		client, err := httpclient.New(httpclient.ConfigOptions()...)
		if err != nil {
			return nil, err
		}
		m, err := manifest.Fetch(ctx, client, src)
		if err != nil {
			return nil, err
		}
		return value.Marshal(m)
	}

	var body []byte
	var err error
	if src == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, err
	}
	return extract.ParseManifest(string(body), base)
}
