package http

import (
	"github.com/bytedance/sonic"

	"github.com/vizlet/vizlet/internal/types"
)

// parseJSON parses JSON string into interface
func parseJSON(jsonStr string, v interface{}) error {
	return sonic.UnmarshalString(jsonStr, v)
}

// toJSON converts interface to JSON string
func toJSON(v interface{}) (string, error) {
	return sonic.MarshalString(v)
}

// parseSource decodes a widget's persisted data source configuration.
// An empty value means a static source with no data.
func parseSource(sourceJSON string) (types.DataSource, error) {
	if sourceJSON == "" {
		return types.DataSource{Kind: types.SourceStatic}, nil
	}
	var src types.DataSource
	if err := parseJSON(sourceJSON, &src); err != nil {
		return types.DataSource{}, err
	}
	if src.Kind == "" {
		src.Kind = types.SourceStatic
	}
	return src, nil
}
