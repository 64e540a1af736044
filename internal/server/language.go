// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import "unicode"

// scriptLanguages maps Unicode blocks to the language most users writing
// in that script speak. Order matters: the first block with a match wins.
var scriptLanguages = []struct {
	table *unicode.RangeTable
	lang  string
}{
	{&unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0900, Hi: 0x097F, Stride: 1}}}, "hi"},
	{&unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0A80, Hi: 0x0AFF, Stride: 1}}}, "gu"},
	{&unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0C00, Hi: 0x0C7F, Stride: 1}}}, "te"},
}

// DetectScriptLanguage guesses a language tag from the script of text.
// Devanagari is reported as Hindi; anything unrecognized is English.
func DetectScriptLanguage(text string) string {
	for _, sl := range scriptLanguages {
		for _, r := range text {
			if unicode.Is(sl.table, r) {
				return sl.lang
			}
		}
	}
	return "en"
}
