package entry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// System keys of a CMS entry payload. They are lifted into Entry attributes
// or dropped, never exposed as content fields.
const (
	keyUID         = "uid"
	keyContentType = "content_type_uid"
	keyUpdatedAt   = "updated_at"
	keyLocale      = "locale"
)

var systemKeys = map[string]bool{
	keyUID:            true,
	keyContentType:    true,
	keyUpdatedAt:      true,
	keyLocale:         true,
	"created_at":      true,
	"created_by":      true,
	"updated_by":      true,
	"_version":        true,
	"_in_progress":    true,
	"_metadata":       true,
	"ACL":             true,
	"publish_details": true,
}

// Entry is one content record from the CMS (immutable value object).
type Entry struct {
	id          string
	contentType string
	updatedAt   time.Time
	locale      string
	fields      map[string]Value
}

// New creates an Entry. Invalid (zero) field values are dropped.
func New(id, contentType string, updatedAt time.Time, fields map[string]Value) Entry {
	clean := make(map[string]Value, len(fields))
	for k, v := range fields {
		if v.kind != 0 && !systemKeys[k] {
			clean[k] = v
		}
	}
	return Entry{id: id, contentType: contentType, updatedAt: updatedAt, fields: clean}
}

// WithLocale returns a copy of e tagged with the given locale.
func (e Entry) WithLocale(locale string) Entry {
	e.locale = locale
	return e
}

// ID returns the entry uid.
func (e *Entry) ID() string { return e.id }

// ContentType returns the content type uid.
func (e *Entry) ContentType() string { return e.contentType }

// UpdatedAt returns the last modification time. Zero when unknown.
func (e *Entry) UpdatedAt() time.Time { return e.updatedAt }

// Locale returns the entry locale, empty when unknown.
func (e *Entry) Locale() string { return e.locale }

// Field returns a content field by name.
func (e *Entry) Field(name string) (Value, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// FieldNames returns content field names in sorted order.
func (e *Entry) FieldNames() []string { return sortedKeys(e.fields) }

// FromMap builds an Entry from a decoded CMS payload.
// contentType is used when the payload carries no content_type_uid.
func FromMap(raw map[string]any, contentType string) (Entry, error) {
	id, _ := raw[keyUID].(string)
	if id == "" {
		return Entry{}, fmt.Errorf("entry uid is required")
	}
	if ct, ok := raw[keyContentType].(string); ok && ct != "" {
		contentType = ct
	}

	var updated time.Time
	switch ts := raw[keyUpdatedAt].(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(ts))
		if err != nil {
			return Entry{}, fmt.Errorf("entry %s: parse updated_at: %w", id, err)
		}
		updated = t
	case time.Time:
		updated = ts
	}

	fields := make(map[string]Value, len(raw))
	for k, el := range raw {
		if systemKeys[k] {
			continue
		}
		if v, ok := FromAny(el); ok {
			fields[k] = v
		}
	}

	e := New(id, contentType, updated, fields)
	if loc, ok := raw[keyLocale].(string); ok {
		e.locale = loc
	}
	return e, nil
}

// ToMap converts e back to a CMS-shaped payload.
func (e *Entry) ToMap() map[string]any {
	out := make(map[string]any, len(e.fields)+4)
	for k, v := range e.fields {
		out[k] = v.ToAny()
	}
	out[keyUID] = e.id
	if e.contentType != "" {
		out[keyContentType] = e.contentType
	}
	if !e.updatedAt.IsZero() {
		out[keyUpdatedAt] = e.updatedAt.UTC().Format(time.RFC3339Nano)
	}
	if e.locale != "" {
		out[keyLocale] = e.locale
	}
	return out
}

// MarshalJSON encodes e in the CMS payload shape.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

// UnmarshalJSON decodes a CMS payload.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	parsed, err := FromMap(raw, "")
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
