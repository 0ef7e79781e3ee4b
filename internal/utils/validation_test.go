package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		required bool
		wantErr  bool
	}{
		{"valid id", "widget-42_a.b", true, false},
		{"empty required", "", true, true},
		{"empty optional", "", false, false},
		{"too long", strings.Repeat("a", MaxIDLength+1), true, true},
		{"path traversal", "../etc/passwd", true, true},
		{"spaces", "widget 1", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id, "id", tt.required)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateComponentSource(t *testing.T) {
	assert.Error(t, ValidateComponentSource(""))
	assert.NoError(t, ValidateComponentSource("function Widget({data}) {}"))
	assert.Error(t, ValidateComponentSource(strings.Repeat("x", MaxComponentSize+1)))
}

func TestValidateData(t *testing.T) {
	assert.NoError(t, ValidateData(nil))
	assert.NoError(t, ValidateData([]any{map[string]any{"a": 1}}))

	// Unserializable values are rejected.
	assert.Error(t, ValidateData(map[string]any{"f": func() {}}))

	// Deep nesting is rejected.
	deep := any("leaf")
	for i := 0; i < 30; i++ {
		deep = map[string]any{"v": deep}
	}
	assert.Error(t, ValidateData(deep))
}

func TestValidateJSONSize(t *testing.T) {
	v := NewJSONSizeValidator(16)
	assert.NoError(t, v.ValidateJSON([]byte(`{"a":1}`)))
	assert.Error(t, v.ValidateJSON([]byte(`{"a":"aaaaaaaaaaaaaaaa"}`)))
	assert.Error(t, v.ValidateJSON([]byte(`{"a":`)))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle(""))
	assert.NoError(t, ValidateTitle("Top Tracks"))
	assert.Error(t, ValidateTitle(strings.Repeat("t", MaxTitleLength+1)))
}
