// Package normalize folds free-form remote text into a stable ASCII-leaning form.
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKC normalization
// 3 Remove format chars (zero-width joiners, BOM)
// 4 Width fold fullwidth digits and letters to ASCII
// 5 Collapse whitespace to single spaces and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// Text returns the normalized form of s
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = s
	}
	return strings.Join(strings.Fields(ns), " ")
}

// FirstInt returns the first run of ASCII digits in the normalized form of s
func FirstInt(s string) (int, bool) {
	s = Text(s)
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return 0, false
	}
	n := 0
	for _, r := range s[start:] {
		if !isDigit(r) {
			break
		}
		d := int(r - '0')
		if n > (maxInt-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}

const maxInt = int(^uint(0) >> 1)

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
