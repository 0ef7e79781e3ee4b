package sandbox

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/dop251/goja"
)

var tagNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

// voidTags render without a closing element.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// attrrenames maps React prop names onto their HTML attributes.
var attrRenames = map[string]string{
	"className": "class",
	"htmlFor":   "for",
}

// renderValue walks an element tree into markup. It mirrors what the
// browser runtime would paint: text nodes escaped, component functions
// expanded, fragments flattened, charts emitted as their canvas hosts.
func (r *Runtime) renderValue(v goja.Value, depth int) (string, error) {
	if depth > r.config.MaxRenderDepth {
		return "", fmt.Errorf("element tree exceeds maximum depth %d", r.config.MaxRenderDepth)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}

	switch v.ExportType().Kind().String() {
	case "string":
		return html.EscapeString(v.String()), nil
	case "bool":
		// React renders booleans as nothing.
		return "", nil
	case "int64", "float64":
		return html.EscapeString(v.String()), nil
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return html.EscapeString(v.String()), nil
	}

	if obj.ClassName() == "Array" {
		return r.renderChildren(obj, depth)
	}

	if marker := obj.Get("$$element"); marker != nil && marker.ToBoolean() {
		return r.renderElement(obj, depth)
	}

	// An arbitrary object slipped into the tree; refuse rather than leak
	// its string form into markup.
	return "", fmt.Errorf("objects are not valid as a child element")
}

func (r *Runtime) renderChildren(arr *goja.Object, depth int) (string, error) {
	length := int(arr.Get("length").ToInteger())
	var sb strings.Builder
	for i := 0; i < length; i++ {
		part, err := r.renderValue(arr.Get(fmt.Sprintf("%d", i)), depth+1)
		if err != nil {
			return "", err
		}
		sb.WriteString(part)
	}
	return sb.String(), nil
}

func (r *Runtime) renderElement(el *goja.Object, depth int) (string, error) {
	typ := el.Get("type")
	if typ == nil || goja.IsUndefined(typ) {
		return "", fmt.Errorf("element has no type")
	}

	// Component function: call it with props and render the result.
	if fn, ok := goja.AssertFunction(typ); ok {
		result, err := fn(goja.Undefined(), el.Get("props"))
		if err != nil {
			return "", fmt.Errorf("%s", exceptionText(err))
		}
		return r.renderValue(result, depth+1)
	}

	tag := typ.String()
	if tag == fragmentType {
		children := el.Get("children")
		if arr, ok := children.(*goja.Object); ok {
			return r.renderChildren(arr, depth)
		}
		return "", nil
	}

	if !tagNamePattern.MatchString(tag) {
		return "", fmt.Errorf("invalid element type %q", tag)
	}
	tag = strings.ToLower(tag)

	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(tag)
	if props, ok := el.Get("props").(*goja.Object); ok && props != nil {
		sb.WriteString(r.renderAttrs(props))
	}

	if voidTags[tag] {
		sb.WriteString("/>")
		return sb.String(), nil
	}
	sb.WriteString(">")

	if children := el.Get("children"); children != nil {
		if arr, ok := children.(*goja.Object); ok && arr.ClassName() == "Array" {
			inner, err := r.renderChildren(arr, depth)
			if err != nil {
				return "", err
			}
			sb.WriteString(inner)
		}
	}

	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteString(">")
	return sb.String(), nil
}

// renderAttrs serializes props into attributes. Event handlers, refs, and
// anything non-scalar are dropped: the server render has no event loop to
// wire them to.
func (r *Runtime) renderAttrs(props *goja.Object) string {
	keys := props.Keys()
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		if key == "children" || key == "ref" || key == "key" ||
			key == "dangerouslySetInnerHTML" || strings.HasPrefix(key, "on") {
			continue
		}

		val := props.Get(key)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			continue
		}
		if _, isFn := goja.AssertFunction(val); isFn {
			continue
		}

		name := key
		if renamed, ok := attrRenames[key]; ok {
			name = renamed
		}
		if !tagNamePattern.MatchString(strings.ReplaceAll(name, "-", "a")) {
			continue
		}

		if name == "style" {
			if styleObj, ok := val.(*goja.Object); ok {
				if css := renderStyle(styleObj); css != "" {
					fmt.Fprintf(&sb, ` style=%q`, css)
				}
				continue
			}
		}

		switch val.ExportType().Kind().String() {
		case "bool":
			if val.ToBoolean() {
				fmt.Fprintf(&sb, " %s", name)
			}
		case "string", "int64", "float64":
			fmt.Fprintf(&sb, ` %s="%s"`, name, html.EscapeString(val.String()))
		}
	}
	return sb.String()
}

var styleKeyPattern = regexp.MustCompile(`([a-z])([A-Z])`)

// renderStyle converts a React style object into an inline CSS string.
func renderStyle(style *goja.Object) string {
	keys := style.Keys()
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		val := style.Get(key)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			continue
		}
		prop := strings.ToLower(styleKeyPattern.ReplaceAllString(key, "$1-$2"))
		value := val.String()
		if strings.ContainsAny(prop+value, `{};"<>`) {
			continue
		}
		parts = append(parts, prop+": "+value)
	}
	return strings.Join(parts, "; ")
}
