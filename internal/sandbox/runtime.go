package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/vizlet/vizlet/internal/types"
)

// Runtime wraps a goja VM with security controls. Each execution gets a
// clean global scope: state never leaks across widget sources.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	// Per-execution state, cleared on Reset.
	console   []LogEntry
	consoleMu sync.Mutex
	messages  []types.Message
	charts    []ChartSpec
	effects   []goja.Callable
	rootHTML  string
	mounted   bool
	program   Program

	interrupt chan struct{}
}

// New creates a sandboxed runtime.
func New(config Config) (*Runtime, error) {
	r := &Runtime{config: config}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs one widget program with timeout and resource limits. The
// returned result always carries the outcome messages the execution posted;
// a non-nil error means the program itself failed (and a WIDGET_ERROR
// message reflecting it is present in the result).
func (r *Runtime) Execute(ctx context.Context, program Program) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	r.clearExecState()
	r.program = program

	if err := r.vm.Set("__WIDGET_DATA__", r.vm.ToValue(program.Data)); err != nil {
		return nil, fmt.Errorf("failed to inject widget data: %w", err)
	}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	// The watchdog works on snapshots of the channel and VM: r.interrupt
	// and r.vm are reassigned between executions, and a stale watchdog
	// must never interrupt a later widget's run on the same pooled
	// runtime. The stop channel is re-checked before interrupting and
	// Execute joins the watchdog before clearing the interrupt flag.
	stop := r.interrupt
	vm := r.vm
	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		select {
		case <-timer.C:
			select {
			case <-stop:
			default:
				vm.Interrupt("execution timeout exceeded")
			}
		case <-ctx.Done():
			select {
			case <-stop:
			default:
				vm.Interrupt("context cancelled")
			}
		case <-stop:
		}
	}()

	_, err := r.vm.RunString(harness(program.Source))

	close(stop)
	<-watchdogDone
	r.interrupt = make(chan struct{})
	r.vm.ClearInterrupt()

	result := &Result{
		HTML:     r.rootHTML,
		Mounted:  r.mounted,
		Console:  r.snapshotConsole(),
		Charts:   append([]ChartSpec{}, r.charts...),
		Messages: append([]types.Message{}, r.messages...),
		Duration: time.Since(start),
	}

	if err != nil {
		// Uncatchable failures (syntax errors, interrupts) bypass the
		// harness's guard; synthesize the error message the guard
		// would have posted.
		result.Error = err
		if !hasOutcome(result.Messages) {
			result.Messages = append(result.Messages, types.Message{
				Type:        types.MessageError,
				Error:       exceptionText(err),
				WidgetID:    program.WidgetID,
				Fingerprint: program.Fingerprint,
			})
		}
		return result, err
	}

	if !result.Mounted && !hasOutcome(result.Messages) {
		// The program returned without mounting or reporting; leave it
		// to the host's timeout backstop.
		return result, nil
	}
	return result, nil
}

// harness wraps untrusted component source in a guarded execution block:
// mount on success, post an error outcome on any throw.
func harness(source string) string {
	var sb strings.Builder
	sb.WriteString("(function () {\ntry {\n")
	sb.WriteString(source)
	sb.WriteString(`
var __entry = (typeof Widget === 'function') ? Widget : undefined;
if (!__entry) { throw new Error('widget entry function "Widget" is not defined'); }
var __root = ReactDOM.createRoot(document.getElementById('root'));
__root.render(React.createElement(__entry, { data: __WIDGET_DATA__ }));
parent.postMessage({ type: 'WIDGET_READY' }, '*');
} catch (err) {
parent.postMessage({ type: 'WIDGET_ERROR', error: String(err && err.message || err) }, '*');
}
})();`)
	return sb.String()
}

// exceptionText extracts the human-readable message from a goja failure.
func exceptionText(err error) string {
	var ex *goja.Exception
	if ok := asException(err, &ex); ok {
		return ex.Value().String()
	}
	return err.Error()
}

func asException(err error, target **goja.Exception) bool {
	ex, ok := err.(*goja.Exception)
	if ok {
		*target = ex
	}
	return ok
}

func hasOutcome(msgs []types.Message) bool {
	for _, m := range msgs {
		if m.Type == types.MessageReady || m.Type == types.MessageError {
			return true
		}
	}
	return false
}

func (r *Runtime) clearExecState() {
	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()
	r.messages = nil
	r.charts = nil
	r.effects = nil
	r.rootHTML = ""
	r.mounted = false
}

func (r *Runtime) snapshotConsole() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry{}, r.console...)
}

// emit records an outcome message posted by the sandboxed code, stamping it
// with the executing program's identity.
func (r *Runtime) emit(kind types.MessageType, errText string) {
	r.messages = append(r.messages, types.Message{
		Type:        kind,
		Error:       errText,
		WidgetID:    r.program.WidgetID,
		Fingerprint: r.program.Fingerprint,
	})
}

// throw raises a JS exception from a host function.
func (r *Runtime) throw(format string, args ...any) {
	panic(r.vm.NewGoError(fmt.Errorf(format, args...)))
}

// Reset discards the VM entirely. Rebuilds are clean-slate reconstructions,
// never in-place patches.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reset()
}

func (r *Runtime) reset() error {
	r.vm = goja.New()
	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}
	if r.interrupt != nil {
		select {
		case <-r.interrupt:
		default:
			close(r.interrupt)
		}
	}
	r.interrupt = make(chan struct{})
	r.clearExecState()
	return r.setupGlobals()
}

// Close releases resources.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm = nil
	r.console = nil
	return nil
}
