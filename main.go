// SPDX-FileCopyrightText: © 2020 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Metaextract extracts the structured metadata of HTML documents.
package main

import (
	"fmt"
	"os"

	"codeberg.org/readeck/metaextract/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err) //nolint:errcheck
		os.Exit(1)
	}
}
