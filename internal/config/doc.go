// Package config provides 12-factor configuration management for the
// widget rendering service.
//
// Configuration is loaded from environment variables with sensible
// defaults. A .env file is honored in development.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Fetch: data proxy base URL, timeout, retries
//   - Sandbox: execution pool size and per-run timeout
//   - Render: outcome wait ceiling, grace window, document cache size
//   - Store: sqlite database path
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, FETCH_BASE_URL, FETCH_TIMEOUT, FETCH_MAX_RETRIES
//   - SANDBOX_POOL_SIZE, SANDBOX_TIMEOUT
//   - RENDER_READY_TIMEOUT, RENDER_GRACE, RENDER_DOCUMENT_CACHE
//   - STORE_PATH, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
