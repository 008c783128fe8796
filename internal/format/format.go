// Package format renders ranked results into the context block injected into LLM prompts.
package format

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/search/result"
)

// Rendering constants.
const (
	NoContent = "No relevant content found in the knowledge base."
	Header    = "Relevant information from the knowledge base:\n\n"
	Footer    = "\n---\nUse this information to provide accurate, contextual responses. " +
		"If the information doesn't fully answer the user's question, " +
		"acknowledge what you do and don't know from the provided context."

	DefaultMaxLength = 2000
	ExcerptLength    = 200
	dateLayout       = "2006-01-02"
)

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// Format renders results in rank order. Blocks are appended whole while
// header plus blocks stay within maxLength runes; the footer is always added.
// maxLength <= 0 uses DefaultMaxLength.
func Format(results []result.Scored, maxLength int) string {
	if len(results) == 0 {
		return NoContent
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var b strings.Builder
	b.WriteString(Header)
	length := utf8.RuneCountInString(Header)

	for i := range results {
		block := renderBlock(&results[i], i+1)
		n := utf8.RuneCountInString(block)
		if length+n > maxLength {
			break
		}
		b.WriteString(block)
		length += n
	}

	b.WriteString(Footer)
	return b.String()
}

func renderBlock(r *result.Scored, index int) string {
	md := r.Metadata()
	if md == nil {
		md = &entry.Metadata{}
	}

	title := md.Title
	if title == "" {
		title = "Untitled"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d. **%s**\n", index, title)
	if md.Description != "" {
		fmt.Fprintf(&b, "   Description: %s\n", md.Description)
	}
	if md.Category != "" {
		fmt.Fprintf(&b, "   Category: %s\n", md.Category)
	}
	if len(md.Tags) > 0 {
		fmt.Fprintf(&b, "   Tags: %s\n", strings.Join(md.Tags, ", "))
	}
	if excerpt := CreateExcerpt(r.Text(), ExcerptLength); excerpt != "" {
		fmt.Fprintf(&b, "   Content: %s\n", excerpt)
	}
	fmt.Fprintf(&b, "   Relevance: %d%%\n", int(math.Round(r.Score()*100)))

	updated := "unknown"
	e := r.Entry()
	if ts := e.UpdatedAt(); !ts.IsZero() {
		updated = ts.UTC().Format(dateLayout)
	}
	fmt.Fprintf(&b, "   Last Updated: %s\n\n", updated)
	return b.String()
}

// CreateExcerpt shortens text to about maxLength runes, preferring whole
// sentences, then whole words. "..." marks a shortened excerpt.
func CreateExcerpt(text string, maxLength int) string {
	maxLength = max(maxLength, 0)
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	excerpt := accumulate(sentenceBreak.Split(text, -1), ". ", maxLength)
	if excerpt == "" {
		excerpt = accumulate(strings.Fields(text), " ", maxLength)
	}
	if excerpt == "" {
		// a single word longer than the budget
		runes := []rune(strings.TrimSpace(text))
		excerpt = string(runes[:min(maxLength, len(runes))])
	}
	if excerpt == "" {
		return ""
	}
	return excerpt + "..."
}

// accumulate joins trimmed parts with sep until the next one would overflow max runes.
func accumulate(parts []string, sep string, max int) string {
	var b strings.Builder
	length := 0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n := utf8.RuneCountInString(p)
		if length > 0 {
			n += utf8.RuneCountInString(sep)
		}
		if length+n > max {
			break
		}
		if length > 0 {
			b.WriteString(sep)
		}
		b.WriteString(p)
		length += n
	}
	return b.String()
}
