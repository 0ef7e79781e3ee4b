package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/vizlet/vizlet/internal/types"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
)

// ABIVersion identifies the injected capability surface. Generated code is
// written against this fixed contract; bump it whenever a global is added,
// removed, or changes shape.
const ABIVersion = 1

// Capabilities lists the host-provided globals sandboxed component code may
// reference. This is a closed set, not an open-ended environment.
func Capabilities() []string {
	return []string{
		"React.createElement",
		"React.Fragment",
		"ReactDOM.createRoot",
		"useState",
		"useEffect",
		"useRef",
		"BarChart",
		"LineChart",
		"PieChart",
		"console",
		"parent.postMessage",
	}
}

// Config defines sandbox configuration.
type Config struct {
	Timeout        time.Duration // Execution timeout
	MaxCallStack   int           // goja call stack ceiling
	MaxRenderDepth int           // Element tree depth ceiling
	EnableConsole  bool          // Capture console.log/warn/error
}

// DefaultConfig returns the standard execution limits.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxCallStack:   1024,
		MaxRenderDepth: 256,
		EnableConsole:  true,
	}
}

// Program is one execution's worth of work: plain-JS component source bound
// to its data and identity.
type Program struct {
	WidgetID    string
	Fingerprint uint64
	Source      string
	Data        any
}

// LogEntry represents captured console output.
type LogEntry struct {
	Level   string    // log, warn, error, info
	Message string    // Log message
	Time    time.Time // Timestamp
}

// ChartSpec records one chart primitive instantiated during a render. Each
// spec owns exactly one canvas in the output.
type ChartSpec struct {
	Kind    string `json:"kind"` // bar, line, pie
	Data    any    `json:"data"`
	Options any    `json:"options,omitempty"`
}

// Result holds one execution's outcome.
type Result struct {
	HTML     string          // Rendered markup under the root element
	Mounted  bool            // Whether the component mounted successfully
	Console  []LogEntry      // Captured console output
	Charts   []ChartSpec     // Chart primitives created during render
	Messages []types.Message // Outcome messages posted to the parent
	Duration time.Duration   // Execution time
	Error    error           // Execution error, if any
}

// Executor is the JavaScript execution interface.
type Executor interface {
	Execute(ctx context.Context, program Program) (*Result, error)
	Reset() error
	Close() error
}
