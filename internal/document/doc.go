/*
Package document synthesizes self-contained sandbox documents for untrusted,
AI-generated widget components.

# Overview

A built document is a complete HTML string ready to load into an isolated
browsing context (an iframe with sandbox="allow-scripts", or the server-side
sandbox runtime). It carries everything the component needs:

  - Pinned, versioned runtime dependencies (React, Chart.js, Babel) loaded
    from fixed CDN locations; nothing is fetched from the hosting origin
  - A typography and flex-layout baseline plus theme CSS variables and a
    rotating per-widget background
  - Host-injected globals the generated code may assume: useState, useEffect,
    useRef, and the BarChart/LineChart/PieChart canvas wrappers
  - The normalized widget data and sanitized title embedded as literals
  - A guarded execution block that posts WIDGET_READY or WIDGET_ERROR to the
    parent frame and renders an inline error panel on failure

# Injection safety

The component source and data cross a trust boundary when embedded. Sources
placed inside the in-browser transpile template literal are escaped for
backticks, interpolation openers, and backslashes; serialized JSON is escaped
for script-close sequences and JS line separators; titles pass through a
strict sanitizer before interpolation.

# Transpilation

JSX is detected by a declared component kind or, failing that, markup
sniffing. Detected JSX is transpiled server-side with esbuild; when that
fails the raw source is embedded with Babel standalone so the browser can
attempt transpilation itself, and if that also fails the document evaluates
the raw source before giving up.

# Caching

Documents are cached in a bounded LRU keyed over every build input, so
semantically identical builds are free while a theme-only change still
produces fresh bytes.
*/
package document
