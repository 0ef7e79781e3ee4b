package sandbox

import (
	"time"

	"github.com/dop251/goja"
)

// fragmentType marks a fragment element; rendering emits its children only.
const fragmentType = "$$fragment"

// setupGlobals installs the capability surface and strips everything
// dangerous. The injected set is fixed (see Capabilities); sandboxed code
// gets no filesystem, network, or host access.
func (r *Runtime) setupGlobals() error {
	vm := r.vm

	// Remove dangerous globals.
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())
	vm.Set("globalThis_fetch", goja.Undefined())
	vm.Set("fetch", goja.Undefined())

	// Timers are no-ops: a single render pass has nothing to schedule.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	vm.Set("setTimeout", noop)
	vm.Set("setInterval", noop)
	vm.Set("clearTimeout", noop)
	vm.Set("clearInterval", noop)

	if r.config.EnableConsole {
		console := vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		vm.Set("console", console)
	}

	// React shim: createElement builds a plain element tree the renderer
	// walks after mount.
	react := vm.NewObject()
	react.Set("createElement", r.createElement)
	react.Set("Fragment", vm.ToValue(fragmentType))
	react.Set("useState", r.useState)
	react.Set("useEffect", r.useEffect)
	react.Set("useRef", r.useRef)
	vm.Set("React", react)

	// Hook primitives are also exposed as bare globals, matching the
	// browser document's shims.
	vm.Set("useState", r.useState)
	vm.Set("useEffect", r.useEffect)
	vm.Set("useRef", r.useRef)

	// Chart primitives: one canvas per wrapper, recorded as chart specs.
	vm.Set("BarChart", r.makeChartComponent("bar"))
	vm.Set("LineChart", r.makeChartComponent("line"))
	vm.Set("PieChart", r.makeChartComponent("pie"))

	// Minimal document: just enough surface for the mount contract.
	doc := vm.NewObject()
	rootEl := vm.NewObject()
	rootEl.Set("id", "root")
	doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 && call.Arguments[0].String() == "root" {
			return rootEl
		}
		return goja.Null()
	})
	vm.Set("document", doc)

	// ReactDOM.createRoot(container).render(element) walks the element
	// tree into markup and runs recorded effects.
	reactDOM := vm.NewObject()
	reactDOM.Set("createRoot", func(call goja.FunctionCall) goja.Value {
		root := vm.NewObject()
		root.Set("render", func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				r.throw("render requires an element")
			}
			html, err := r.renderValue(call.Arguments[0], 0)
			if err != nil {
				r.throw("%s", err.Error())
			}
			r.rootHTML = html
			r.mounted = true
			r.runEffects()
			return goja.Undefined()
		})
		return root
	})
	vm.Set("ReactDOM", reactDOM)

	// The message channel back to the host. Only the two defined outcome
	// shapes are accepted; anything else is dropped.
	parent := vm.NewObject()
	parent.Set("postMessage", r.postMessage)
	vm.Set("parent", parent)

	// window aliases the global scope, as generated code expects.
	window := vm.GlobalObject()
	vm.Set("window", window)

	return nil
}

// createElement implements React.createElement(type, props, ...children).
// Children are merged into props.children so components can consume either
// form.
func (r *Runtime) createElement(call goja.FunctionCall) goja.Value {
	vm := r.vm

	el := vm.NewObject()
	el.Set("$$element", true)

	var typ goja.Value = goja.Undefined()
	if len(call.Arguments) > 0 {
		typ = call.Arguments[0]
	}
	el.Set("type", typ)

	props := vm.NewObject()
	if len(call.Arguments) > 1 {
		if src := call.Arguments[1]; !goja.IsNull(src) && !goja.IsUndefined(src) {
			srcObj := src.ToObject(vm)
			for _, k := range srcObj.Keys() {
				props.Set(k, srcObj.Get(k))
			}
		}
	}

	var children []any
	for _, arg := range call.Arguments[min(2, len(call.Arguments)):] {
		children = append(children, arg)
	}
	childArr := vm.NewArray(children...)
	el.Set("children", childArr)
	if props.Get("children") == nil || len(children) > 0 {
		props.Set("children", childArr)
	}
	el.Set("props", props)

	return el
}

// useState returns [initialValue, setter]. The server host performs a single
// render pass, so the setter is a no-op; state updates are a browser-side
// concern.
func (r *Runtime) useState(call goja.FunctionCall) goja.Value {
	vm := r.vm
	var initial goja.Value = goja.Undefined()
	if len(call.Arguments) > 0 {
		initial = call.Arguments[0]
		if lazy, ok := goja.AssertFunction(initial); ok {
			if v, err := lazy(goja.Undefined()); err == nil {
				initial = v
			} else {
				r.throw("useState initializer failed: %s", err.Error())
			}
		}
	}
	setter := vm.ToValue(func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	return vm.NewArray(initial, setter)
}

// useEffect records the callback; effects run once after mount, guarded.
func (r *Runtime) useEffect(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) > 0 {
		if fn, ok := goja.AssertFunction(call.Arguments[0]); ok {
			r.effects = append(r.effects, fn)
		}
	}
	return goja.Undefined()
}

// useRef returns {current: initial}.
func (r *Runtime) useRef(call goja.FunctionCall) goja.Value {
	ref := r.vm.NewObject()
	if len(call.Arguments) > 0 {
		ref.Set("current", call.Arguments[0])
	} else {
		ref.Set("current", goja.Undefined())
	}
	return ref
}

// runEffects executes recorded effects once. An effect failure cannot undo a
// successful mount; it is captured as console output instead.
func (r *Runtime) runEffects() {
	for _, fn := range r.effects {
		if _, err := fn(goja.Undefined()); err != nil {
			r.consoleMu.Lock()
			r.console = append(r.console, LogEntry{
				Level:   "error",
				Message: "effect failed: " + exceptionText(err),
				Time:    time.Now(),
			})
			r.consoleMu.Unlock()
		}
	}
	r.effects = nil
}

// makeChartComponent builds a chart primitive: a component function that
// owns exactly one canvas element and records its chart configuration.
func (r *Runtime) makeChartComponent(kind string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		vm := r.vm

		var data, options goja.Value = goja.Undefined(), goja.Undefined()
		if len(call.Arguments) > 0 {
			if props := call.Arguments[0]; !goja.IsNull(props) && !goja.IsUndefined(props) {
				obj := props.ToObject(vm)
				data = obj.Get("data")
				options = obj.Get("options")
			}
		}

		el := vm.NewObject()
		el.Set("$$element", true)
		el.Set("$$chart", kind)
		el.Set("type", vm.ToValue("canvas"))
		props := vm.NewObject()
		props.Set("data-chart", vm.ToValue(kind))
		el.Set("props", props)
		el.Set("children", vm.NewArray())

		r.charts = append(r.charts, ChartSpec{
			Kind:    kind,
			Data:    export(data),
			Options: export(options),
		})
		return el
	}
}

// postMessage accepts exactly the two defined outcome shapes and drops
// everything else.
func (r *Runtime) postMessage(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		return goja.Undefined()
	}
	msg := call.Arguments[0]
	if goja.IsNull(msg) || goja.IsUndefined(msg) {
		return goja.Undefined()
	}
	obj := msg.ToObject(r.vm)
	kind := obj.Get("type")
	if kind == nil {
		return goja.Undefined()
	}

	switch kind.String() {
	case "WIDGET_READY":
		r.emit("WIDGET_READY", "")
	case "WIDGET_ERROR":
		errText := ""
		if v := obj.Get("error"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			errText = v.String()
		}
		r.emit("WIDGET_ERROR", errText)
	}
	return goja.Undefined()
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// export converts a goja value to a plain Go value.
func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
