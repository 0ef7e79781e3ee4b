/*
Package sandbox executes untrusted, AI-generated widget components inside
isolated goja runtimes.

# Overview

Each execution gets a clean VM: a fixed capability surface is injected, the
component source runs inside a guarded harness, the returned element tree is
walked into markup, and the outcome is reported as one of exactly two
messages (WIDGET_READY or WIDGET_ERROR). Nothing is shared between widgets
or between rebuilds of the same widget; a rebuild is a clean-slate
reconstruction, never an in-place patch.

# Capability surface

Sandboxed code may reference only the globals listed by Capabilities:
React.createElement/Fragment, ReactDOM.createRoot, the useState/useEffect/
useRef primitives, the three chart wrappers, console, and
parent.postMessage. The set is versioned (ABIVersion) and treated as a
contract with the code-generation collaborator, not an open-ended
environment. The server performs a single render pass: state setters are
no-ops and effects run once, guarded, after mount.

# Security model

Sandboxed code cannot reach the filesystem, network, host credentials, or
other widgets. require/process/module/exports are removed, timers are
no-ops, execution is bounded by an interrupt-based timeout and a call-stack
ceiling.

# Message attribution

The Dispatcher keys every message by widget ID and content fingerprint.
Advancing a widget's generation orphans all in-flight executions for the
old content, so a stale sandbox's late ready/error is discarded instead of
being applied to its replacement.
*/
package sandbox
