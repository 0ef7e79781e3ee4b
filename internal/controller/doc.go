// Package controller orchestrates widget rendering end to end.
//
// Per widget it resolves a data value (cached, static, or live fetched
// with a static fallback), normalizes it, hands it with the component
// source to the document builder, and drives sandbox execution to a
// terminal loading, ready, or error outcome. A bounded wait with a
// timeout-as-success fallback keeps a silent render from looking like an
// infinite load. Failures never escape the widget that caused them.
package controller
