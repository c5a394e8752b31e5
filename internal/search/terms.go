// Package search turns free-text list searches into normalized terms.
//
// The embedded backend matches every term as a case-insensitive substring of
// the kind's searchable columns (all terms must match). Tokenization is
// Unicode-aware: letters followed by optional digits form a word, and
// case folding uses golang.org/x/text/cases so that "ÄRZTE" and "ärzte"
// produce the same term.
package search

import (
	"regexp"

	"golang.org/x/text/cases"
)

// MaxTerms caps how many distinct terms a single search contributes.
const MaxTerms = 8

var (
	wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)
	folder = cases.Fold()
)

// Terms returns the distinct folded words of q in first-seen order, capped at
// MaxTerms. An empty or punctuation-only query yields nil.
func Terms(q string) []string {
	words := wordRE.FindAllString(folder.String(q), -1)
	if len(words) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == MaxTerms {
			break
		}
	}
	return out
}

// LikePattern wraps term for a SQL LIKE match with '\' as the escape
// character, escaping any wildcard the term itself contains.
func LikePattern(term string) string {
	b := make([]byte, 0, len(term)+2)
	b = append(b, '%')
	for i := 0; i < len(term); i++ {
		switch c := term[i]; c {
		case '%', '_', '\\':
			b = append(b, '\\', c)
		default:
			b = append(b, c)
		}
	}
	return string(append(b, '%'))
}
