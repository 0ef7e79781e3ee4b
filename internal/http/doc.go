// Package http provides HTTP handlers for the widget rendering service.
//
// Handler groups:
//   - Render: execute a widget end to end, or build its sandbox document
//   - Dashboards: create, list, list widgets with cached data, refresh
//   - Widgets: save, get, delete, render persisted widgets
//   - Sources: register and list upstream data sources
//   - Themes, Stats, Health: supporting read endpoints
//
// All handlers return JSON and keep failures contained per widget: a
// broken widget yields an error outcome in its own response, never a
// failed dashboard.
package http
