//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Fields is a decoded JSON object whose members are read on demand.
// Every accessor returns a zero value when the member is missing or has the wrong shape,
// so callers never fail on partial payloads.
type Fields map[string]json.RawMessage

// ParseFields decodes raw as a JSON object. Anything other than an object yields an
// empty Fields and false.
func ParseFields(raw []byte) (Fields, bool) {
	var f Fields
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil || f == nil {
		return Fields{}, false
	}
	return f, true
}

// Has reports whether key is present and not null.
func (f Fields) Has(key string) bool {
	raw, ok := f[key]
	return ok && string(raw) != "null"
}

// String returns the member as a string. Numbers and booleans are formatted.
func (f Fields) String(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// Float returns the member as a number and whether a numeric value was found.
// Numeric strings such as "72" or "72.5" are accepted.
func (f Fields) Float(key string) (float64, bool) {
	raw, ok := f[key]
	if !ok {
		return 0, false
	}
	var v float64
	if json.Unmarshal(raw, &v) == nil {
		return v, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// Int returns the member truncated to an int, or 0.
func (f Fields) Int(key string) int {
	v, _ := f.Float(key)
	return int(v)
}

// Strings returns the member as a list of strings, skipping non-string and empty elements.
// A single string value is returned as a one-element list.
func (f Fields) Strings(key string) []string {
	raw, ok := f[key]
	if !ok {
		return []string{}
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		var single string
		if json.Unmarshal(raw, &single) == nil && single != "" {
			return []string{single}
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Object returns the member as nested Fields.
func (f Fields) Object(key string) Fields {
	raw, ok := f[key]
	if !ok {
		return Fields{}
	}
	nested, _ := ParseFields(raw)
	return nested
}

// Objects returns the member as a list of nested Fields, skipping non-object elements.
func (f Fields) Objects(key string) []Fields {
	raw, ok := f[key]
	if !ok {
		return []Fields{}
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []Fields{}
	}
	out := make([]Fields, 0, len(items))
	for _, item := range items {
		if nested, ok := ParseFields(item); ok {
			out = append(out, nested)
		}
	}
	return out
}

// Counts returns the member as a map of integer counts, skipping non-numeric values.
func (f Fields) Counts(key string) map[string]int {
	nested := f.Object(key)
	out := make(map[string]int, len(nested))
	for k := range nested {
		if v, ok := nested.Float(k); ok {
			out[k] = int(v)
		}
	}
	return out
}

// Keys returns the member names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
