// Package headers holds the case-insensitive header map shared by requests
// and responses.
package headers

import (
	"bytes"
	"iter"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// https://datatracker.ietf.org/doc/html/rfc9110#name-tokens
var fieldNameRegex = regexp.MustCompile(`^[a-zA-Z0-9!#$%&'*\+\-.^_\x60\|~]+$`)

// Headers is a collection of header fields keyed by lowercased name.
// Repeated fields are folded into one comma separated value.
type Headers struct {
	fields map[string]string
}

// NewHeaders creates an empty header collection.
func NewHeaders() *Headers {
	return &Headers{fields: map[string]string{}}
}

// FromMap builds a collection from a plain map, dropping invalid fields.
func FromMap(m map[string]string) *Headers {
	h := NewHeaders()
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

func validName(key string) bool {
	return fieldNameRegex.MatchString(key)
}

func validValueByte(c byte) bool {
	switch {
	case c == 0x09: // HTAB
		return true
	case c == 0x20: // SP
		return true
	case 0x21 <= c && c <= 0x7E: // VCHAR
		return true
	case c >= 0x80: // obs-text
		return true
	}
	return false
}

func validValue(val []byte) bool {
	for _, b := range val {
		if !validValueByte(b) {
			return false
		}
	}
	return true
}

func normalizeKey(key string) string {
	return strings.ToLower(key)
}

// Add appends value to the field. Invalid names or values are dropped so a
// response can never be split by a crafted header.
func (h *Headers) Add(key, value string) {
	if !validName(key) || !validValue([]byte(value)) {
		return
	}
	h.ensure()
	key = normalizeKey(key)
	if existing, ok := h.fields[key]; ok {
		h.fields[key] = existing + ", " + value
		return
	}
	h.fields[key] = value
}

// Set replaces any existing value of the field.
func (h *Headers) Set(key, value string) {
	if !validName(key) || !validValue([]byte(value)) {
		return
	}
	h.ensure()
	h.fields[normalizeKey(key)] = value
}

// Get returns the value of a field, or "" when absent.
func (h *Headers) Get(key string) string {
	if h == nil {
		return ""
	}
	return h.fields[normalizeKey(key)]
}

// Has reports whether the field is present, even with an empty value.
func (h *Headers) Has(key string) bool {
	if h == nil {
		return false
	}
	_, ok := h.fields[normalizeKey(key)]
	return ok
}

// Remove deletes a field.
func (h *Headers) Remove(key string) {
	if h == nil {
		return
	}
	delete(h.fields, normalizeKey(key))
}

// All returns an iterator over all fields in no particular order.
func (h *Headers) All() iter.Seq2[string, string] {
	if h == nil {
		return func(func(string, string) bool) {}
	}
	return maps.All(h.fields)
}

// Keys returns the field names in sorted order.
func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(h.fields))
}

// Size returns the number of fields.
func (h *Headers) Size() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Clone returns an independent copy. Cloning nil yields an empty collection.
func (h *Headers) Clone() *Headers {
	if h == nil || h.fields == nil {
		return NewHeaders()
	}
	return &Headers{fields: maps.Clone(h.fields)}
}

// ParseFieldLine parses a single "Name: value" line and adds it.
func (h *Headers) ParseFieldLine(data []byte) error {
	colonPos := bytes.IndexByte(data, ':')
	if colonPos == -1 {
		return ErrMalformedHeader
	}

	// leading whitespace in the name is tolerated
	hkey := bytes.TrimLeft(data[:colonPos], " \t")
	hvalue := bytes.Trim(data[colonPos+1:], " \t")

	if !bytes.Equal(hkey, bytes.TrimRight(hkey, " ")) {
		// space between name and colon
		return ErrMalformedHeader
	}

	if !fieldNameRegex.Match(hkey) || !validValue(hvalue) {
		return ErrMalformedHeader
	}

	h.Add(string(hkey), string(hvalue))
	return nil
}

func (h *Headers) ensure() {
	if h.fields == nil {
		h.fields = map[string]string{}
	}
}
