package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/microcosm-cc/bluemonday"

	"github.com/vizlet/vizlet/internal/theme"
	"github.com/vizlet/vizlet/internal/transpile"
	"github.com/vizlet/vizlet/internal/types"
)

// Pinned runtime dependency locations. The document loads everything it
// needs from these URLs and nothing from the hosting origin, so it can run
// at about:blank-equivalent isolation.
const (
	reactURL    = "https://unpkg.com/react@18.2.0/umd/react.production.min.js"
	reactDOMURL = "https://unpkg.com/react-dom@18.2.0/umd/react-dom.production.min.js"
	chartJSURL  = "https://cdn.jsdelivr.net/npm/chart.js@4.4.0/dist/chart.umd.min.js"
	babelURL    = "https://unpkg.com/@babel/standalone@7.23.5/babel.min.js"
)

// DefaultCacheSize bounds the built-document LRU cache.
const DefaultCacheSize = 256

// BuildSpec is everything the builder needs to synthesize one executable
// document. Theme customization arrives here explicitly; the builder reads
// no ambient state.
type BuildSpec struct {
	ComponentSource string
	ComponentKind   types.ComponentKind
	Data            any
	Theme           theme.Theme
	Title           string
	WidgetIndex     int
	Overrides       *theme.Overrides
}

// Builder synthesizes self-contained sandbox documents. Safe for concurrent
// use.
type Builder struct {
	cache     *lru.Cache
	sanitizer *bluemonday.Policy
}

// NewBuilder creates a builder with a bounded document cache.
func NewBuilder(cacheSize int) (*Builder, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}
	return &Builder{
		cache:     cache,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Fingerprint identifies one execution's content: the serialized data plus
// the source length. Semantically unchanged inputs hash identically, so the
// hosting page does not reload a context that would render the same output.
func Fingerprint(componentSource string, data any) uint64 {
	d := xxhash.New()
	d.WriteString(JSONLiteral(data))
	d.WriteString(strconv.Itoa(len(componentSource)))
	return d.Sum64()
}

// cacheKey covers every input that alters document bytes. A theme-only
// change must still produce a fresh document.
func (b *Builder) cacheKey(spec BuildSpec) uint64 {
	d := xxhash.New()
	d.WriteString(spec.ComponentSource)
	d.WriteString("\x00")
	d.WriteString(string(spec.ComponentKind))
	d.WriteString("\x00")
	d.WriteString(JSONLiteral(spec.Data))
	d.WriteString("\x00")
	d.WriteString(string(spec.Theme))
	d.WriteString("\x00")
	d.WriteString(spec.Title)
	d.WriteString("\x00")
	d.WriteString(strconv.Itoa(spec.WidgetIndex % 3))
	if spec.Overrides != nil {
		d.WriteString("\x00")
		d.WriteString(JSONLiteral(spec.Overrides))
	}
	return d.Sum64()
}

// Build synthesizes the complete executable document for spec. Building
// never fails on bad component source: a source that cannot be transpiled
// server-side is embedded raw and the document's in-browser transpile and
// raw-eval paths take over, surfacing errors through the message channel.
func (b *Builder) Build(spec BuildSpec) (string, error) {
	key := b.cacheKey(spec)
	if doc, ok := b.cache.Get(key); ok {
		return doc.(string), nil
	}

	doc := b.render(spec)
	b.cache.Add(key, doc)
	return doc, nil
}

// Program prepares the server-side execution form of spec: plain JS the
// sandbox runtime can evaluate, plus the execution fingerprint.
func (b *Builder) Program(spec BuildSpec) (string, uint64, error) {
	src, err := b.transpiled(spec)
	if err != nil {
		return "", 0, err
	}
	return src, Fingerprint(spec.ComponentSource, spec.Data), nil
}

// transpiled returns plain-JS component source, transpiling JSX when the
// spec declares it or sniffing detects it.
func (b *Builder) transpiled(spec BuildSpec) (string, error) {
	needsJSX := spec.ComponentKind == types.ComponentJSX ||
		(spec.ComponentKind == types.ComponentAuto && transpile.NeedsTranspile(spec.ComponentSource))
	if !needsJSX {
		return spec.ComponentSource, nil
	}
	return transpile.JSX(spec.ComponentSource)
}

func (b *Builder) render(spec BuildSpec) string {
	t := theme.Normalize(spec.Theme)
	background := theme.BackgroundFor(t, spec.WidgetIndex, spec.Overrides)

	// Prefer server-side transpilation; when it fails the raw source is
	// embedded alongside Babel so the browser can still attempt both the
	// transpile path and a raw evaluation path. Pre-transpiled source is
	// minified to keep embedded documents small; a minify failure just
	// embeds the unminified form.
	inlineJS, preTranspiled := "", false
	if js, err := b.transpiled(spec); err == nil {
		if compact, err := transpile.MinifyJS(js); err == nil {
			js = compact
		}
		inlineJS, preTranspiled = js, true
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "  <script crossorigin src=%q></script>\n", reactURL)
	fmt.Fprintf(&sb, "  <script crossorigin src=%q></script>\n", reactDOMURL)
	fmt.Fprintf(&sb, "  <script src=%q></script>\n", chartJSURL)
	if !preTranspiled {
		fmt.Fprintf(&sb, "  <script src=%q></script>\n", babelURL)
	}
	sb.WriteString("  <style>\n")
	sb.WriteString(baseCSS)
	sb.WriteString(theme.CSSFor(t, spec.Overrides))
	fmt.Fprintf(&sb, "\nbody { background: %s; }\n", safeCSSValue(background, "#ffffff"))
	sb.WriteString("  </style>\n</head>\n<body>\n")

	if title := b.sanitizer.Sanitize(spec.Title); strings.TrimSpace(title) != "" {
		fmt.Fprintf(&sb, "  <h2 class=\"widget-title\">%s</h2>\n", EscapeHTML(title))
	}
	sb.WriteString("  <div id=\"root\"></div>\n\n  <script>\n")
	sb.WriteString(b.bootScript(spec, inlineJS, preTranspiled))
	sb.WriteString("  </script>\n</body>\n</html>")
	return sb.String()
}

// bootScript assembles the inline script: runtime shims, the embedded data
// and component source, and the guarded execution block.
func (b *Builder) bootScript(spec BuildSpec, inlineJS string, preTranspiled bool) string {
	var sb strings.Builder
	sb.WriteString("window.addEventListener('load', function () {\n")
	sb.WriteString(messagingJS)
	sb.WriteString("  try {\n")
	sb.WriteString(hooksJS)
	sb.WriteString(chartRuntimeJS)
	fmt.Fprintf(&sb, "    var widgetData = %s;\n", JSONLiteral(spec.Data))
	sb.WriteString(mountJS)

	if preTranspiled {
		// Server-side transpiled: evaluate directly.
		sb.WriteString("    ;(function () {\n")
		sb.WriteString(EscapeScriptContent(inlineJS))
		sb.WriteString("\n    window.Widget = typeof Widget === 'function' ? Widget : window.Widget;\n")
		sb.WriteString("    })();\n")
		sb.WriteString("    mountWidget();\n")
	} else {
		fmt.Fprintf(&sb, "    var widgetSource = `%s`;\n", EscapeTemplateLiteral(spec.ComponentSource))
		sb.WriteString(browserTranspileJS)
	}

	sb.WriteString(errorTrapJS)
	sb.WriteString("});\n")
	return sb.String()
}

const baseCSS = `body {
  margin: 0;
  padding: 16px;
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
  display: flex;
  flex-direction: column;
  min-height: 100vh;
  box-sizing: border-box;
}
* { box-sizing: border-box; }
#root { flex: 1; display: flex; flex-direction: column; }
.widget-title { margin: 0 0 12px; font-size: 1.1rem; }
.widget-error { padding: 20px; text-align: center; color: #dc2626; }
.widget-error p { font-size: 14px; color: #991b1b; }
canvas { max-width: 100%; }
`

const messagingJS = `  function post(msg) { window.parent.postMessage(msg, '*'); }
  function showError(message) {
    var panel = document.createElement('div');
    panel.className = 'widget-error';
    var heading = document.createElement('h3');
    heading.textContent = 'Error rendering widget';
    var detail = document.createElement('p');
    detail.textContent = message;
    panel.appendChild(heading);
    panel.appendChild(detail);
    var root = document.getElementById('root');
    root.innerHTML = '';
    root.appendChild(panel);
  }
`

const hooksJS = `    window.useState = React.useState;
    window.useEffect = React.useEffect;
    window.useRef = React.useRef;
`

const chartRuntimeJS = `    if (window.Chart && window.Chart.register && window.Chart.registerables) {
      window.Chart.register.apply(window.Chart, window.Chart.registerables);
    }
    function makeChartComponent(kind) {
      return function (props) {
        var canvasRef = React.useRef(null);
        var chartRef = React.useRef(null);
        React.useEffect(function () {
          if (canvasRef.current) {
            if (chartRef.current) { chartRef.current.destroy(); }
            chartRef.current = new window.Chart(canvasRef.current, {
              type: kind,
              data: props.data,
              options: props.options || {}
            });
          }
          return function () {
            if (chartRef.current) { chartRef.current.destroy(); chartRef.current = null; }
          };
        }, [props.data, props.options]);
        return React.createElement('canvas', { ref: canvasRef });
      };
    }
    window.BarChart = makeChartComponent('bar');
    window.LineChart = makeChartComponent('line');
    window.PieChart = makeChartComponent('pie');
`

const mountJS = `    function mountWidget() {
      var entry = typeof Widget === 'function' ? Widget : window.Widget;
      if (typeof entry !== 'function') {
        throw new Error('widget entry function "Widget" is not defined');
      }
      var container = document.getElementById('root');
      var root = ReactDOM.createRoot(container);
      root.render(React.createElement(entry, { data: widgetData }));
      post({ type: 'WIDGET_READY' });
    }
`

// browserTranspileJS runs when server-side transpilation was skipped or
// failed: transpile with Babel when available, and fall back to evaluating
// the raw source rather than hard-failing when Babel is missing or rejects
// the code.
const browserTranspileJS = `    function evalRaw() {
      (0, eval)(widgetSource);
      mountWidget();
    }
    if (typeof Babel === 'undefined') {
      evalRaw();
    } else {
      try {
        (0, eval)(Babel.transform(widgetSource, { presets: ['react'] }).code);
        mountWidget();
      } catch (transpileErr) {
        evalRaw();
      }
    }
`

const errorTrapJS = `  } catch (err) {
    var message = String(err && err.message || err);
    post({ type: 'WIDGET_ERROR', error: message });
    showError(message);
  }
`
