// Package textproc holds the tokenisation, stemming and normalisation primitives
// shared by the scorer, the matcher and the cache key builder.
package textproc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokens shorter than this many runes are dropped before stemming.
const minTokenLen = 3

var stopWords = map[string]bool{
	"the": true, "is": true, "at": true, "which": true, "on": true,
	"and": true, "a": true, "to": true, "are": true, "as": true,
	"was": true, "were": true, "been": true, "be": true,
}

// Fold lowercases s and strips combining marks ("Café" -> "cafe").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Tokenize splits folded text into alphanumeric word tokens.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Stems returns the stemmed tokens of s. Tokens of two runes or fewer and
// single-rune stems are discarded.
func Stems(s string) []string {
	var out []string
	for _, tok := range Tokenize(s) {
		if st := stem(tok); st != "" {
			out = append(out, st)
		}
	}
	return out
}

// Keywords returns the stems of s with stop words removed.
func Keywords(s string) []string {
	var out []string
	for _, tok := range Tokenize(s) {
		if stopWords[tok] {
			continue
		}
		if st := stem(tok); st != "" {
			out = append(out, st)
		}
	}
	return out
}

// Set builds a membership set from tokens.
func Set(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Unique returns tokens without duplicates, first occurrence order.
func Unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Words splits folded text on whitespace and trims surrounding punctuation.
// Positions are preserved for proximity scoring, so duplicates are kept.
func Words(s string) []string {
	raw := strings.Fields(Fold(s))
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// KeySegment normalises s for use inside a cache key: folded, every rune
// outside [a-z0-9] replaced by '_', capped at max runes.
func KeySegment(s string, max int) string {
	var b strings.Builder
	n := 0
	for _, r := range Fold(s) {
		if max > 0 && n >= max {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

func stem(tok string) string {
	if utf8.RuneCountInString(tok) < minTokenLen {
		return ""
	}
	st := english.Stem(tok, false)
	if utf8.RuneCountInString(st) <= 1 {
		return ""
	}
	return st
}
