package facets

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag key carrying member metadata
const TagName = "meta"

// TagEntry is one key[=value] element of a meta tag
type TagEntry struct {
	Key      string
	Value    string
	HasValue bool
}

// Tag is a parsed meta tag, e.g. `meta:"named=Last name;maxLength=40;optional"`
type Tag struct {
	entries []TagEntry
}

// ParseTag parses the meta tag of a struct field
func ParseTag(field reflect.StructField) (Tag, error) {
	raw, ok := field.Tag.Lookup(TagName)
	if !ok {
		return Tag{}, nil
	}
	return ParseTagValue(raw)
}

// ParseTagValue parses a raw meta tag value. Entries are separated by ';'.
// A literal ';' inside a value is written as ';;'.
func ParseTagValue(raw string) (Tag, error) {
	var t Tag
	seen := make(map[string]bool)
	for _, part := range splitTag(raw) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var e TagEntry
		if i := strings.IndexByte(part, '='); i >= 0 {
			e = TagEntry{Key: strings.TrimSpace(part[:i]), Value: strings.TrimSpace(part[i+1:]), HasValue: true}
		} else {
			e = TagEntry{Key: part}
		}
		if e.Key == "" {
			return Tag{}, fmt.Errorf("empty key in meta tag %q", raw)
		}
		if seen[e.Key] {
			return Tag{}, fmt.Errorf("duplicate key %q in meta tag %q", e.Key, raw)
		}
		seen[e.Key] = true
		t.entries = append(t.entries, e)
	}
	return t, nil
}

func splitTag(raw string) []string {
	var parts []string
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == ';' {
			if i+1 < len(raw) && raw[i+1] == ';' {
				b.WriteByte(';')
				i++
				continue
			}
			parts = append(parts, b.String())
			b.Reset()
			continue
		}
		b.WriteByte(raw[i])
	}
	return append(parts, b.String())
}

// Entries returns the entries in declaration order
func (t Tag) Entries() []TagEntry {
	return t.entries
}

// Lookup returns the entry for key
func (t Tag) Lookup(key string) (TagEntry, bool) {
	for _, e := range t.entries {
		if e.Key == key {
			return e, true
		}
	}
	return TagEntry{}, false
}

// Has reports whether key is present
func (t Tag) Has(key string) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Excluded reports whether the tag is "-", which removes the field from the metamodel
func (t Tag) Excluded() bool {
	return len(t.entries) == 1 && t.entries[0].Key == "-" && !t.entries[0].HasValue
}

// IsEmpty reports whether the tag has no entries
func (t Tag) IsEmpty() bool {
	return len(t.entries) == 0
}
