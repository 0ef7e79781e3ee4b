/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the widget
rendering service, tracking HTTP requests, document builds, sandbox
executions, data fetches, and WebSocket traffic.

# Features

- HTTP request metrics (latency, throughput, size)
- Document build metrics (cache hit rate, transpile outcomes)
- Sandbox execution metrics (duration, outcome)
- Data fetch metrics (per-source latency, cache usage)
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.RecordExecution("ready", duration)
	metrics.RecordCacheServed()

	// Time operations
	timer := monitoring.NewFetchTimer(metrics, "lastfm-top-tracks")
	// ... perform fetch ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
