package document

import (
	"strings"

	"github.com/bytedance/sonic"
)

// templateEscaper rewrites characters that could terminate the JavaScript
// template literal holding the untrusted component source. Backslash first,
// then backtick and the interpolation opener.
var templateEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"${", "\\${",
)

// EscapeTemplateLiteral makes src safe to embed inside a backtick-delimited
// template literal.
func EscapeTemplateLiteral(src string) string {
	return templateEscaper.Replace(src)
}

// scriptEscaper neutralizes sequences that would close the surrounding
// <script> element or confuse HTML parsing, plus the JS line separators
// JSON permits but script blocks do not.
var scriptEscaper = strings.NewReplacer(
	"</script", `<\/script`,
	"<!--", `<\!--`,
	" ", ` `,
	" ", ` `,
)

// EscapeScriptContent makes already-serialized JS text safe inside an inline
// <script> block.
func EscapeScriptContent(js string) string {
	return scriptEscaper.Replace(js)
}

// JSONLiteral serializes v as a JSON literal safe to embed in an inline
// script. Serialization failures degrade to null so building never fails on
// odd data; the widget then sees an absent value instead of the host
// erroring out.
func JSONLiteral(v any) string {
	if v == nil {
		return "null"
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return "null"
	}
	return EscapeScriptContent(string(b))
}

// htmlEscaper covers text interpolated into document markup.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes text for interpolation into markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// JSStringLiteral serializes s as a double-quoted JS string literal.
func JSStringLiteral(s string) string {
	b, err := sonic.Marshal(s)
	if err != nil {
		// Marshal of a string cannot realistically fail; keep the
		// document well-formed regardless.
		return `""`
	}
	return EscapeScriptContent(string(b))
}

// cssValueSafe rejects style values that could break out of a declaration.
func cssValueSafe(v string) bool {
	return !strings.ContainsAny(v, "{};<>")
}

// safeCSSValue returns v when it is safe to place in a CSS declaration and a
// neutral fallback otherwise.
func safeCSSValue(v, fallback string) string {
	if v != "" && cssValueSafe(v) {
		return v
	}
	return fallback
}
