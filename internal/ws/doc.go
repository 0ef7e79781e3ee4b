// Package ws provides WebSocket handling for real-time render outcomes.
//
// Clients watch widgets and receive their ready/error signals as they are
// dispatched, so a dashboard can show loading, rendered, and failed states
// without polling. Clients may also trigger renders over the same
// connection.
//
// Message Types (Client → Server):
//   - watch: Subscribe to a widget's outcomes ("*" for all)
//   - unwatch: Stop watching a widget
//   - render: Execute a widget specification
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - watching: Watch acknowledged
//   - outcome: A widget posted ready or error
//   - render_complete: A requested render finished, with full outcome
//   - error: Request failed
//
// Example Usage:
//
//	handler := ws.NewHandler(dispatcher, controller, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
