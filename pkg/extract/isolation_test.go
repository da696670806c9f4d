// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codeberg.org/readeck/metaextract/pkg/extract/document"
)

func TestFormatPanic(t *testing.T) {
	orig := extractors[FormatMicrodata]
	extractors[FormatMicrodata] = func(_ *Extractor, _ *document.Document) any {
		panic("boom")
	}
	t.Cleanup(func() {
		extractors[FormatMicrodata] = orig
	})

	assert := require.New(t)
	var failed error
	e := New(WithObserver(func(f Format, _ time.Duration, _ bool, err error) {
		if f == FormatMicrodata {
			failed = err
		}
	}))

	res, err := e.Run(`<meta property="og:title" content="T"><div itemscope><p itemprop="a">b</p></div>`, "")
	assert.NoError(err)
	assert.Nil(res.Microdata)
	assert.JSONEq(`{"title": "T"}`, string(res.OpenGraph))
	assert.ErrorIs(failed, ErrInternal)
	assert.Equal(CodeParse, CodeOf(failed))

	_, err = e.One(FormatMicrodata, "<p>x</p>", "")
	assert.ErrorIs(err, ErrInternal)
}
