package match

import (
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kailas-cloud/ctxsearch/internal/extract"
	"github.com/kailas-cloud/ctxsearch/internal/textproc"
)

const (
	minFuzzyQueryLen = 2
	// maxFuzzyWords caps the document prefix compared in fuzzy mode.
	maxFuzzyWords = 2000
)

// composite joins metadata and text into the single string fuzzy mode compares against.
func composite(doc extract.Document) string {
	parts := []string{doc.Metadata.Title, doc.Metadata.Description, doc.SearchableText}
	parts = append(parts, doc.Metadata.Tags...)
	return strings.Join(parts, " ")
}

// fuzzyScore is 1 minus the smallest normalised edit distance between the
// query and any run of the same number of words in text.
func fuzzyScore(query, text string) float64 {
	qWords := textproc.Words(query)
	q := strings.Join(qWords, " ")
	if utf8.RuneCountInString(q) < minFuzzyQueryLen {
		return 0
	}
	words := textproc.Words(text)
	if len(words) == 0 {
		return 0
	}
	if len(words) > maxFuzzyWords {
		words = words[:maxFuzzyWords]
	}
	if strings.Contains(strings.Join(words, " "), q) {
		return 1
	}

	span := min(len(qWords), len(words))
	best := 1.0
	for i := 0; i+span <= len(words); i++ {
		d := normalizedDistance(q, strings.Join(words[i:i+span], " "))
		if d < best {
			best = d
		}
	}
	return 1 - best
}

func normalizedDistance(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return float64(fuzzy.LevenshteinDistance(a, b)) / float64(longest)
}
