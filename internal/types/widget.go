package types

import (
	"time"

	"github.com/vizlet/vizlet/internal/theme"
)

// SourceKind distinguishes inline data from live integrations.
type SourceKind string

const (
	SourceStatic SourceKind = "static"
	SourceLive   SourceKind = "live"
)

// SourceConfig carries the pointer and overrides for resolving widget data.
type SourceConfig struct {
	SourceID string         `json:"sourceId,omitempty"`
	Endpoint string         `json:"endpoint,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	// Data holds inline data for static sources and doubles as the
	// fallback when a live fetch fails.
	Data any `json:"data,omitempty"`
}

// DataSource binds a widget to its data.
type DataSource struct {
	Kind   SourceKind   `json:"kind"`
	Config SourceConfig `json:"config"`
}

// ComponentKind declares how the component source should be interpreted.
// When empty the builder falls back to markup sniffing.
type ComponentKind string

const (
	ComponentAuto ComponentKind = ""
	ComponentJS   ComponentKind = "js"
	ComponentJSX  ComponentKind = "jsx"
)

// WidgetSpec is the unit of work for rendering: one piece of generated
// component source bound to a data source, theme, and title.
type WidgetSpec struct {
	ID              string           `json:"id,omitempty"`
	ComponentSource string           `json:"component_source"`
	ComponentKind   ComponentKind    `json:"component_kind,omitempty"`
	DataSource      DataSource       `json:"data_source"`
	Theme           theme.Theme      `json:"theme,omitempty"`
	Title           string           `json:"title,omitempty"`
	WidgetIndex     int              `json:"widget_index,omitempty"`
	ThemeOverrides  *theme.Overrides `json:"theme_overrides,omitempty"`
	// CachedData is the previously resolved blob supplied by the
	// persistence layer at mount time. Non-nil cached data suppresses
	// live fetching entirely.
	CachedData any `json:"cached_data,omitempty"`
}

// RenderState tracks a render attempt's lifecycle.
type RenderState string

const (
	StateLoading RenderState = "loading"
	StateReady   RenderState = "ready"
	StateError   RenderState = "error"
)

// RenderOutcome is the terminal result of a single render attempt. Ready and
// error are mutually exclusive; a new attempt resets to loading.
type RenderOutcome struct {
	State       RenderState   `json:"state"`
	Error       string        `json:"error,omitempty"`
	DataError   string        `json:"data_error,omitempty"`
	Retryable   bool          `json:"retryable,omitempty"`
	TimedOut    bool          `json:"timed_out,omitempty"`
	HTML        string        `json:"html,omitempty"`
	Console     []string      `json:"console,omitempty"`
	Fingerprint uint64        `json:"fingerprint,omitempty"`
	Duration    time.Duration `json:"duration_ns,omitempty"`
}

// MessageType enumerates the two inbound message kinds the host accepts
// from a sandboxed execution.
type MessageType string

const (
	MessageReady MessageType = "WIDGET_READY"
	MessageError MessageType = "WIDGET_ERROR"
)

// Message is the wire shape posted from a sandbox to its host. WidgetID and
// Fingerprint attribute the message to one execution so a stale sandbox can
// never flip the state of its replacement.
type Message struct {
	Type        MessageType `json:"type"`
	Error       string      `json:"error,omitempty"`
	WidgetID    string      `json:"widget_id,omitempty"`
	Fingerprint uint64      `json:"fingerprint,omitempty"`
}

// Visualization wraps the generated component source as the code-generation
// collaborator returns it.
type Visualization struct {
	ComponentCode string `json:"componentCode"`
}

// GeneratedWidget mirrors the code-generation service response. Only the
// title, data source, and component source feed the rendering pipeline.
type GeneratedWidget struct {
	Title         string        `json:"title"`
	DataSource    DataSource    `json:"dataSource"`
	Visualization Visualization `json:"visualization"`
	Explanation   string        `json:"explanation,omitempty"`
	Suggestions   []string      `json:"suggestions,omitempty"`
}
