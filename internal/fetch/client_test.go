package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizlet/vizlet/internal/types"
)

func newTestClient(serverURL string) *Client {
	cfg := DefaultConfig(serverURL)
	cfg.MaxRetries = 2
	cfg.MinWait = 10 * time.Millisecond
	cfg.MaxWait = 50 * time.Millisecond
	return New(cfg)
}

func TestFetchUnwrapsEnvelope(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/fetch-data", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"tracks": {"track": [{"name": "song"}]}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	payload, err := client.Fetch(context.Background(), types.SourceConfig{
		SourceID: "lastfm-top-tracks",
		Endpoint: "/top-tracks",
		Params:   map[string]any{"limit": float64(10)},
	})
	require.NoError(t, err)

	assert.Equal(t, "lastfm-top-tracks", gotBody["sourceId"])
	assert.Equal(t, "/top-tracks", gotBody["endpoint"])

	obj, ok := payload.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, obj, "tracks")
}

func TestFetchProxyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "upstream unavailable"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Fetch(context.Background(), types.SourceConfig{SourceID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [1, 2, 3]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	payload, err := client.Fetch(context.Background(), types.SourceConfig{SourceID: "s1"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))

	arr, ok := payload.([]any)
	require.True(t, ok)
	assert.Len(t, arr, 3)
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Fetch(context.Background(), types.SourceConfig{SourceID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := newTestClient(server.URL)
	_, err := client.Fetch(ctx, types.SourceConfig{SourceID: "slow"})
	assert.Error(t, err)
}
