// Package static serves content entries from a fixture file instead of the CMS.
package static

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/source"
)

// fixture is the on-disk layout. JSON files parse as well.
//
//	entries:
//	  - uid: faq-1
//	    content_type_uid: faq
//	    title: Return policy
type fixture struct {
	Entries []map[string]any `yaml:"entries"`
}

// Source holds entries in memory, in fixture order.
type Source struct {
	entries []entry.Entry
}

// New creates a source over the given entries.
func New(entries []entry.Entry) *Source {
	return &Source{entries: slices.Clone(entries)}
}

// Load reads a YAML or JSON fixture file.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixture bytes. Every entry needs a uid and a content_type_uid.
func Parse(data []byte) (*Source, error) {
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	entries := make([]entry.Entry, 0, len(f.Entries))
	for i, raw := range f.Entries {
		e, err := entry.FromMap(raw, "")
		if err != nil {
			return nil, fmt.Errorf("fixture entry %d: %w", i, err)
		}
		if e.ContentType() == "" {
			return nil, fmt.Errorf("fixture entry %d (%s): %w", i, e.ID(), errMissingContentType)
		}
		entries = append(entries, e)
	}
	return &Source{entries: entries}, nil
}

var errMissingContentType = errors.New("missing content_type_uid")

// Ready always reports true: a fixture needs no credentials.
func (s *Source) Ready() bool { return true }

// HealthCheck always succeeds.
func (s *Source) HealthCheck(_ context.Context) error { return nil }

// ListContentTypes returns the distinct content types, sorted.
func (s *Source) ListContentTypes(_ context.Context) ([]string, error) {
	var types []string
	for i := range s.entries {
		ct := s.entries[i].ContentType()
		if !slices.Contains(types, ct) {
			types = append(types, ct)
		}
	}
	slices.Sort(types)
	return types, nil
}

// FetchEntries returns entries of the requested content types (all when
// none are given), filtered by locale when both sides carry one, capped
// by q.Limit. TotalCount counts matches before the cap.
func (s *Source) FetchEntries(ctx context.Context, q source.Query) (source.Page, error) {
	if err := ctx.Err(); err != nil {
		return source.Page{}, fmt.Errorf("fetch entries: %w", err)
	}

	var page source.Page
	for i := range s.entries {
		e := s.entries[i]
		if len(q.ContentTypes) > 0 && !slices.Contains(q.ContentTypes, e.ContentType()) {
			continue
		}
		if q.Locale != "" && e.Locale() != "" && e.Locale() != q.Locale {
			continue
		}
		page.TotalCount++
		if q.Limit <= 0 || len(page.Entries) < q.Limit {
			page.Entries = append(page.Entries, e)
		}
	}
	return page, nil
}
