// Package extract flattens heterogeneous CMS entries into scorable text and display metadata.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
)

const (
	// MaxDepth bounds the recursive scan of non-priority fields.
	MaxDepth = 3
	// minNestedLen is the shortest nested string (in runes) worth indexing.
	minNestedLen = 11
)

// PriorityFields are the conventional text fields read first, in this order.
var PriorityFields = []string{"title", "description", "body", "content", "summary", "excerpt"}

var priority = func() map[string]bool {
	m := make(map[string]bool, len(PriorityFields))
	for _, f := range PriorityFields {
		m[f] = true
	}
	return m
}()

// Document is the flattened, scorable view of an entry.
type Document struct {
	SearchableText string
	Metadata       entry.Metadata
}

// Extract builds the searchable text and metadata of e. It never fails:
// missing or oddly typed fields contribute nothing.
func Extract(e entry.Entry) Document {
	var parts []string

	for _, name := range PriorityFields {
		v, ok := e.Field(name)
		if !ok {
			continue
		}
		if t := plainText(v); t != "" {
			parts = append(parts, t)
		}
	}

	for _, name := range e.FieldNames() {
		if priority[name] {
			continue
		}
		v, _ := e.Field(name)
		parts = walk(v, 0, parts)
	}

	return Document{
		SearchableText: strings.TrimSpace(strings.Join(parts, " ")),
		Metadata:       metadataOf(e),
	}
}

// walk appends indexable text found in v. depth counts the containers
// entered so far; anything below MaxDepth is ignored.
func walk(v entry.Value, depth int, parts []string) []string {
	if depth > MaxDepth {
		return parts
	}
	switch v.Kind() {
	case entry.KindString:
		s, _ := v.Str()
		if utf8.RuneCountInString(s) >= minNestedLen {
			parts = append(parts, s)
		}
	case entry.KindRichText:
		if t := plainText(v); utf8.RuneCountInString(t) >= minNestedLen {
			parts = append(parts, t)
		}
	case entry.KindList:
		for _, item := range v.Items() {
			switch item.Kind() {
			case entry.KindString:
				s, _ := item.Str()
				if s != "" {
					parts = append(parts, s)
				}
			case entry.KindMap, entry.KindList, entry.KindRichText:
				parts = walk(item, depth+1, parts)
			case entry.KindNumber, entry.KindBool:
			}
		}
	case entry.KindMap:
		fields := v.Fields()
		for _, k := range v.Keys() {
			parts = walk(fields[k], depth+1, parts)
		}
	case entry.KindNumber, entry.KindBool:
	}
	return parts
}

func plainText(v entry.Value) string {
	if s, ok := v.Str(); ok {
		return strings.TrimSpace(s)
	}
	if rt, ok := v.Rich(); ok {
		if rt.HTML != "" {
			return StripHTML(rt.HTML)
		}
		return StripMarkdown(rt.Markdown)
	}
	return ""
}

func metadataOf(e entry.Entry) entry.Metadata {
	md := entry.Metadata{
		Title:       firstText(e, "title", "name"),
		Description: firstText(e, "description", "summary", "excerpt"),
		Category:    firstText(e, "category"),
	}
	if md.Category == "" {
		md.Category = e.ContentType()
	}
	for _, name := range []string{"tags", "keywords"} {
		if v, ok := e.Field(name); ok {
			if tags := v.Strings(); len(tags) > 0 {
				md.Tags = tags
				break
			}
		}
	}
	return md
}

func firstText(e entry.Entry, names ...string) string {
	for _, name := range names {
		if v, ok := e.Field(name); ok {
			if t := plainText(v); t != "" {
				return t
			}
		}
	}
	return ""
}
