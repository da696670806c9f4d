// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package configs

import (
	"time"

	"codeberg.org/readeck/metaextract/pkg/extract"
)

// Set by the linker:
// -X codeberg.org/readeck/metaextract/configs.version=...
// -X codeberg.org/readeck/metaextract/configs.buildTimeStr=...
var (
	version      = ""
	buildTimeStr = ""
	startTime    = time.Now().UTC()
)

// Version returns the build version. It's the library version
// when none was set at build time.
func Version() string {
	if version == "" {
		return extract.Version()
	}
	return version
}

// BuildTime returns the build time, or the process start time when
// it was not set at build time.
func BuildTime() time.Time {
	if t, err := time.Parse(time.RFC3339, buildTimeStr); err == nil {
		return t.UTC()
	}
	return startTime
}
