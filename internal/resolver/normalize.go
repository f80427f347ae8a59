package resolver

import (
	"strings"
	"unicode"

	"github.com/compeng-bot/compeng-bot-go/internal/sliceutil"
	"golang.org/x/text/width"
)

// NormalizeCode folds full-width characters to their narrow forms, removes
// every whitespace rune and upper-cases the result.
// "cp l 211", "CPL211" and "ＣＰＬ２１１" all normalize to "CPL211".
func NormalizeCode(raw string) string {
	folded := width.Fold.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// SplitAbbrevs splits a lecturer abbreviation field on AbbrevDelimiter.
// Tokens are trimmed, empty tokens dropped and repeats collapsed keeping the first.
func SplitAbbrevs(field string) []string {
	tokens := sliceutil.TrimNonEmpty(strings.Split(field, AbbrevDelimiter))
	return sliceutil.Deduplicate(tokens, func(s string) string { return s })
}
