package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want any
	}{
		{
			name: "results envelope",
			raw:  map[string]any{"results": []any{map[string]any{"a": 1}}, "total_count": 10},
			want: []any{map[string]any{"a": 1}},
		},
		{
			name: "tracks wrapper",
			raw:  map[string]any{"tracks": map[string]any{"track": []any{map[string]any{"a": 1}}}},
			want: []any{map[string]any{"a": 1}},
		},
		{
			name: "artists wrapper",
			raw:  map[string]any{"artists": map[string]any{"artist": []any{map[string]any{"name": "x"}}}},
			want: []any{map[string]any{"name": "x"}},
		},
		{
			name: "albums wrapper",
			raw:  map[string]any{"albums": map[string]any{"album": []any{"y"}}},
			want: []any{"y"},
		},
		{
			name: "tags wrapper",
			raw:  map[string]any{"tags": map[string]any{"tag": []any{"rock"}}},
			want: []any{"rock"},
		},
		{
			name: "direct artists array",
			raw:  map[string]any{"artists": []any{map[string]any{"a": 1}}},
			want: []any{map[string]any{"a": 1}},
		},
		{
			name: "results wins over wrappers",
			raw: map[string]any{
				"results": []any{1},
				"tracks":  map[string]any{"track": []any{2}},
			},
			want: []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizePassthrough(t *testing.T) {
	arr := []any{1, 2, 3}
	assert.Equal(t, arr, Normalize(arr))
	assert.Nil(t, Normalize(nil))
	assert.Equal(t, "plain", Normalize("plain"))
	assert.Equal(t, 42, Normalize(42))
}

func TestNormalizeLastResort(t *testing.T) {
	// No array anywhere: wrap in a single-element array.
	obj := map[string]any{"foo": "bar"}
	assert.Equal(t, []any{obj}, Normalize(obj))

	// The first value (sorted key order) is an array: promote it.
	got := Normalize(map[string]any{"meta": "x", "items": []any{1, 2}})
	assert.Equal(t, []any{1, 2}, got)

	// The first value is not an array: wrap, even though a later value
	// is one.
	obj2 := map[string]any{"a": 1, "b": []any{2}}
	assert.Equal(t, []any{obj2}, Normalize(obj2))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []any{
		map[string]any{"results": []any{map[string]any{"a": 1}}},
		map[string]any{"foo": "bar"},
		[]any{map[string]any{"b": 2}},
		nil,
	}

	for _, raw := range inputs {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestNormalizeNeverPanics(t *testing.T) {
	weird := []any{
		map[string]any{"results": "not-an-array"},
		map[string]any{"tracks": "scalar"},
		map[string]any{"tracks": map[string]any{}},
		map[string]any{},
		struct{ X int }{1},
		3.14,
		true,
	}

	for _, raw := range weird {
		assert.NotPanics(t, func() { Normalize(raw) })
	}
}

func TestNormalizeEmptyObject(t *testing.T) {
	// An empty object has no arrays to promote; it wraps.
	got := Normalize(map[string]any{})
	assert.Equal(t, []any{map[string]any{}}, got)
}
