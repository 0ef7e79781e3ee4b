// Package main is the entry point for the Vizlet widget rendering server.
//
// This application renders AI-generated dashboard widgets server-side:
// it resolves widget data, normalizes provider payloads, builds sandboxed
// documents, and executes generated components in isolated runtimes.
//
// Architecture:
//
//	Dashboard client → Vizlet server → Data proxy (upstream integrations)
//	                               → Sandbox pool (isolated execution)
//
// The server provides:
//   - REST API for rendering, dashboards, widgets, and data sources
//   - WebSocket streaming of render outcomes
//   - Per-widget data caching with explicit refresh
//   - Rate limiting and security
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -fetch http://localhost:3001
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
