// Package transpile converts generated component source into plain
// JavaScript the sandbox can evaluate directly.
package transpile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// markupPattern detects tag-like syntax: an opening angle bracket followed by
// a tag or component name and eventually a closing bracket or self-close.
// This is a sniffing fallback; callers that know the source kind should say
// so instead of relying on detection.
var markupPattern = regexp.MustCompile(`<[A-Za-z][A-Za-z0-9.]*(\s[^<>]*)?/?>`)

// NeedsTranspile reports whether src appears to contain JSX markup. String
// literals and comments are blanked out first so markup text inside a
// string never triggers a transpile pass.
func NeedsTranspile(src string) bool {
	return markupPattern.MatchString(stripLiterals(src))
}

// stripLiterals removes the contents of quoted strings, template literals,
// and comments, keeping the rest of the source intact.
func stripLiterals(src string) string {
	var sb strings.Builder
	sb.Grow(len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote := c
			for i++; i < len(src); i++ {
				if src[i] == '\\' {
					i++
				} else if src[i] == quote {
					break
				}
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			sb.WriteByte('\n')
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i+1 < len(src) && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// JSX transforms JSX source into plain JavaScript.
func JSX(src string) (string, error) {
	result := api.Transform(src, api.TransformOptions{
		Loader: api.LoaderJSX,
		Target: api.ES2017,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, err := range result.Errors {
			msgs = append(msgs, err.Text)
		}
		return "", fmt.Errorf("transform jsx code error: %v", strings.Join(msgs, "\n"))
	}
	return string(result.Code), nil
}

// MinifyJS minifies JavaScript embedded into built documents.
func MinifyJS(src string) (string, error) {
	result := api.Transform(src, api.TransformOptions{
		Loader:           api.LoaderJS,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		Target:           api.ES2017,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, err := range result.Errors {
			msgs = append(msgs, err.Text)
		}
		return "", fmt.Errorf("minify js code error: %v", strings.Join(msgs, "\n"))
	}
	return string(result.Code), nil
}
