package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	mdImage   = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdControl = regexp.MustCompile("[#*_`~]")
	htmlTag   = regexp.MustCompile(`<[^>]*>`)
)

// StripHTML removes markup and collapses whitespace. Script and style
// bodies are dropped. Falls back to a tag regex when the fragment cannot be parsed.
func StripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(htmlTag.ReplaceAllString(s, " "))
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	for _, n := range doc.Selection.Nodes {
		collectText(n, &b)
	}
	return collapse(b.String())
}

// StripMarkdown removes markdown control characters and reduces links to their text.
func StripMarkdown(s string) string {
	s = mdImage.ReplaceAllString(s, "$1")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdControl.ReplaceAllString(s, "")
	return collapse(s)
}

// collectText writes text nodes separated by spaces so adjacent block
// elements do not run together.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
