// Package appid turns free-form user text into Steam application identifiers.
package appid

import (
	"strings"
	"unicode"
)

// Normalize maps every Unicode decimal digit in raw to its ASCII equivalent and
// returns the maximal runs of ASCII digits, in input order, duplicates preserved.
// Any other character separates identifiers. Validation is purely lexical: "0" and
// arbitrarily long runs are returned as-is.
func Normalize(raw string) []string {
	var (
		ids []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			ids = append(ids, cur.String())
			cur.Reset()
		}
	}

	for _, r := range raw {
		if d, ok := asciiDigit(r); ok {
			cur.WriteByte(d)
			continue
		}
		flush()
	}
	flush()

	return ids
}

// asciiDigit converts a Unicode Nd code point to '0'..'9'.
// Nd code points always come in contiguous runs of ten starting at zero, and the
// unicode.Nd table stores each (possibly merged) run with stride 1, so the value is
// the offset from the range start modulo ten.
func asciiDigit(r rune) (byte, bool) {
	if r >= '0' && r <= '9' {
		return byte(r), true
	}
	if r < 0x80 || !unicode.Is(unicode.Nd, r) {
		return 0, false
	}
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi && rg.Stride == 1 {
			return byte('0' + (r-lo)%10), true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi && rg.Stride == 1 {
			return byte('0' + (r-lo)%10), true
		}
	}
	return 0, false
}

// Valid reports whether id is a non-empty string of ASCII digits.
func Valid(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
