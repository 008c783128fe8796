package entry

import (
	"encoding/json"
	"sort"
	"time"
)

// Kind discriminates the variants a field Value can hold.
type Kind uint8

// Field value kinds.
const (
	KindString Kind = iota + 1
	KindRichText
	KindNumber
	KindBool
	KindList
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindRichText:
		return "rich_text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// RichText is a CMS rich-text payload. Exactly one of HTML and Markdown is set.
type RichText struct {
	HTML     string
	Markdown string
}

// Value is a single CMS field value. The zero Value is invalid and is skipped by every reader.
type Value struct {
	kind   Kind
	str    string
	num    float64
	b      bool
	rich   RichText
	list   []Value
	fields map[string]Value
}

// String creates a plain string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// HTML creates a rich-text value with HTML markup.
func HTML(s string) Value { return Value{kind: KindRichText, rich: RichText{HTML: s}} }

// Markdown creates a rich-text value with Markdown markup.
func Markdown(s string) Value { return Value{kind: KindRichText, rich: RichText{Markdown: s}} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List creates a list value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Map creates a nested object value.
func Map(fields map[string]Value) Value { return Value{kind: KindMap, fields: fields} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Rich returns the rich-text payload.
func (v Value) Rich() (RichText, bool) { return v.rich, v.kind == KindRichText }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns list elements, nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Fields returns nested fields, nil for other kinds.
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.fields
}

// Keys returns nested field names in sorted order.
func (v Value) Keys() []string {
	return sortedKeys(v.Fields())
}

// Strings returns the string elements of a list, skipping anything else.
func (v Value) Strings() []string {
	var out []string
	for _, item := range v.Items() {
		if s, ok := item.Str(); ok {
			out = append(out, s)
		}
	}
	return out
}

// FromAny classifies a decoded JSON/YAML value.
// Objects carrying an "html" or "markdown" string are treated as rich text.
// Returns false for null and unsupported inputs.
func FromAny(raw any) (Value, bool) {
	switch x := raw.(type) {
	case nil:
		return Value{}, false
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case float64:
		return Number(x), true
	case float32:
		return Number(float64(x)), true
	case int:
		return Number(float64(x)), true
	case int64:
		return Number(float64(x)), true
	case uint64:
		return Number(float64(x)), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return String(x.String()), true
		}
		return Number(f), true
	case time.Time:
		return String(x.UTC().Format(time.RFC3339)), true
	case []any:
		items := make([]Value, 0, len(x))
		for _, el := range x {
			if v, ok := FromAny(el); ok {
				items = append(items, v)
			}
		}
		return List(items...), true
	case map[string]any:
		if h, ok := x["html"].(string); ok {
			return HTML(h), true
		}
		if md, ok := x["markdown"].(string); ok {
			return Markdown(md), true
		}
		fields := make(map[string]Value, len(x))
		for k, el := range x {
			if v, ok := FromAny(el); ok {
				fields[k] = v
			}
		}
		return Map(fields), true
	default:
		return Value{}, false
	}
}

// ToAny converts v back to plain JSON-compatible data.
func (v Value) ToAny() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindRichText:
		if v.rich.HTML != "" || v.rich.Markdown == "" {
			return map[string]any{"html": v.rich.HTML}
		}
		return map[string]any{"markdown": v.rich.Markdown}
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			if item.kind != 0 {
				out = append(out, item.ToAny())
			}
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, item := range v.fields {
			if item.kind != 0 {
				out[k] = item.ToAny()
			}
		}
		return out
	default:
		return nil
	}
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
