// Package server provides HTTP server setup and initialization for the
// widget rendering service.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, metrics, CORS, rate limiting)
//   - Sandbox host with its pooled runtimes and message dispatcher
//   - Fetch client for the upstream data proxy
//   - Document builder and render controller
//   - Sqlite-backed persistence
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Open the store and migrate the schema
//  4. Create the sandbox host and fetch client
//  5. Setup HTTP routes and middleware
//  6. Start HTTP server
//  7. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
