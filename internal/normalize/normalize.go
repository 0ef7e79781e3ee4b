// Package normalize flattens provider-specific response envelopes into the
// uniform array-or-object shape generated widget code assumes.
package normalize

import "sort"

// wrapperKeys lists the scrobbling-service envelope pattern: a pluralized
// outer key holding a singular inner key with the actual records.
var wrapperKeys = [][2]string{
	{"tracks", "track"},
	{"artists", "artist"},
	{"albums", "album"},
	{"tags", "tag"},
}

// Normalize maps assorted upstream response shapes into a flat array or
// object. It is pure and total: unrecognized shapes degrade to best-effort
// passthrough rather than failing, and it never panics. Rules apply in
// order, first match wins.
func Normalize(raw any) any {
	if raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		return normalizeObject(v)
	default:
		// Scalars and typed values pass through untouched.
		return raw
	}
}

func normalizeObject(obj map[string]any) any {
	// Result envelope: { results: [...], total_count, query, ... }
	if results, ok := obj["results"].([]any); ok {
		return results
	}

	// Nested pluralized wrappers: { tracks: { track: [...] } } and friends.
	for _, keys := range wrapperKeys {
		if outer, ok := obj[keys[0]].(map[string]any); ok {
			if inner, ok := outer[keys[1]]; ok {
				return inner
			}
		}
	}

	// Same provider, different endpoint shape: { artists: [...] } directly.
	if artists, ok := obj["artists"].([]any); ok {
		return artists
	}

	// Last resort for array-shaped consumers: promote the first value when
	// it is an array, else wrap the object so data.map(...) does not crash.
	// Keys are sorted so "first" is deterministic; only that one value is
	// inspected.
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		if arr, ok := obj[keys[0]].([]any); ok {
			return arr
		}
	}
	return []any{obj}
}
