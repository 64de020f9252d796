package model

import (
	"bytes"
	"fmt"
	"sort"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalComponentCanonical renders a ComponentData bundle as canonical
// JSON: object keys sorted by UTF-16 code units, strings NFC normalized,
// no HTML escaping. This is the one serialization used for stored component
// text, for value interning, and for golden comparisons, so that identical
// bundles always produce identical bytes.
func MarshalComponentCanonical(data ComponentData) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	names := data.AttributeNames()
	sortUTF16(names)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalCanonicalString(name)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		v, _ := data.Get(name)
		enc, err := encodeCanonicalValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalComponentsCanonical renders a full kind-to-bundle mapping as one
// canonical JSON object keyed by component kind.
func MarshalComponentsCanonical(parts map[ComponentKind]ComponentData) ([]byte, error) {
	kinds := make([]string, 0, len(parts))
	for kind := range parts {
		kinds = append(kinds, string(kind))
	}
	sortUTF16(kinds)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kind := range kinds {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalCanonicalString(kind)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", kind, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		enc, err := MarshalComponentCanonical(parts[ComponentKind(kind)])
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", kind, err)
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeCanonicalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case String:
		return marshalCanonicalString(string(val))
	case Point:
		// Fixed key order: x before y.
		x, err := encodeFloat(val.X)
		if err != nil {
			return nil, err
		}
		y, err := encodeFloat(val.Y)
		if err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf(`{"x":%s,"y":%s}`, x, y)), nil
	default:
		// The remaining variants already encode deterministically.
		return EncodeValue(v)
	}
}

// marshalCanonicalString NFC-normalizes then escapes a string with the
// minimal escape set (no HTML escaping).
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	buf.WriteByte('"')
	for _, r := range normalized {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return buf.Bytes(), nil
}

// sortUTF16 sorts strings by their UTF-16 code unit sequences, the key
// order canonical JSON requires.
func sortUTF16(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	n := len(ua)
	if len(ub) < n {
		n = len(ub)
	}
	for i := 0; i < n; i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	}
	return 0
}
