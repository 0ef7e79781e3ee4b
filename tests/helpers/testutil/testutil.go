// Package testutil provides testing utilities and helpers for service tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vizlet/vizlet/internal/config"
	"github.com/vizlet/vizlet/internal/server"
)

// StubProxy is a fake data proxy that serves canned payloads per source.
type StubProxy struct {
	// Payloads maps sourceId to the raw value wrapped in the data
	// envelope. Unknown sources return 404.
	Payloads map[string]any
	// Calls counts fetches per source.
	Calls map[string]int

	server *httptest.Server
}

// NewStubProxy starts a fake proxy.
func NewStubProxy(t *testing.T, payloads map[string]any) *StubProxy {
	t.Helper()
	p := &StubProxy{
		Payloads: payloads,
		Calls:    make(map[string]int),
	}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fetch-data" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			SourceID string `json:"sourceId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.Calls[req.SourceID]++

		payload, ok := p.Payloads[req.SourceID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": payload})
	}))
	t.Cleanup(p.server.Close)
	return p
}

// URL returns the proxy's base URL.
func (p *StubProxy) URL() string {
	return p.server.URL
}

// NewTestServer builds a full server wired to an in-memory store and the
// given proxy, suitable for end-to-end HTTP assertions.
func NewTestServer(t *testing.T, proxy *StubProxy) *server.Server {
	t.Helper()

	cfg := config.Default()
	cfg.Store.Path = ":memory:"
	cfg.Sandbox.PoolSize = 2
	cfg.RateLimit.Enabled = false
	if proxy != nil {
		cfg.Fetch.BaseURL = proxy.URL()
	}

	srv, err := server.NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}
