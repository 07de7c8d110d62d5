package models

import (
	"fmt"
	"sort"
	"strings"
)

// Entities is an open mapping of extracted values. Values are strings,
// numbers, string slices or string maps; JSON-decoded variants of those
// are tolerated by the accessors.
type Entities map[string]any

// String returns the value at key rendered as a trimmed string.
func (e Entities) String(key string) string {
	v, ok := e[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Strings returns a slice value, accepting []string and []any.
func (e Entities) Strings(key string) []string {
	switch t := e[key].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	default:
		return nil
	}
}

// Fields returns a string map value, accepting map[string]string and
// map[string]any.
func (e Entities) Fields(key string) map[string]string {
	out := map[string]string{}
	switch t := e[key].(type) {
	case map[string]string:
		for k, v := range t {
			out[k] = v
		}
	case map[string]any:
		for k, v := range t {
			if v == nil {
				continue
			}
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge returns a copy of e with every key of over applied on top.
func (e Entities) Merge(over Entities) Entities {
	out := e.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (e Entities) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
