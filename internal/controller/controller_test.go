package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vizlet/vizlet/internal/document"
	"github.com/vizlet/vizlet/internal/sandbox"
	"github.com/vizlet/vizlet/internal/types"
)

// fakeFetcher counts calls and serves a canned payload or error.
type fakeFetcher struct {
	calls   atomic.Int32
	payload any
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, source types.SourceConfig) (any, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func newTestController(t *testing.T, fetcher *fakeFetcher, config Config) *Controller {
	t.Helper()
	host, err := sandbox.NewHost(sandbox.DefaultConfig(), 2, sandbox.NewDispatcher(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { host.Close() })
	builder, err := document.NewBuilder(16)
	require.NoError(t, err)
	return New(fetcher, builder, host, config, nil)
}

const countingSource = `function Widget({data}) { return React.createElement('div', null, data.length + ' items'); }`

func TestResolveCacheFirst(t *testing.T) {
	fetcher := &fakeFetcher{payload: []any{"fresh"}}
	c := newTestController(t, fetcher, DefaultConfig())

	data, err := c.Resolve(context.Background(), types.WidgetSpec{
		ID: "w1",
		DataSource: types.DataSource{
			Kind:   types.SourceLive,
			Config: types.SourceConfig{SourceID: "s1"},
		},
		CachedData: []any{"cached"},
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"cached"}, data)
	assert.Equal(t, int32(0), fetcher.calls.Load(), "cached data must not trigger a fetch")
}

func TestResolveStatic(t *testing.T) {
	fetcher := &fakeFetcher{}
	c := newTestController(t, fetcher, DefaultConfig())

	data, err := c.Resolve(context.Background(), types.WidgetSpec{
		ID: "w1",
		DataSource: types.DataSource{
			Kind:   types.SourceStatic,
			Config: types.SourceConfig{Data: []any{1.0, 2.0}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, data)
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestResolveLiveFetchesOnce(t *testing.T) {
	fetcher := &fakeFetcher{payload: map[string]any{
		"tracks": map[string]any{"track": []any{map[string]any{"name": "song"}}},
	}}
	c := newTestController(t, fetcher, DefaultConfig())

	data, err := c.Resolve(context.Background(), types.WidgetSpec{
		ID: "w1",
		DataSource: types.DataSource{
			Kind:   types.SourceLive,
			Config: types.SourceConfig{SourceID: "lastfm"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	// Envelope unwrapped on the way through.
	arr, ok := data.([]any)
	require.True(t, ok)
	assert.Len(t, arr, 1)
}

func TestResolveFallsBackToStaticDefault(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	c := newTestController(t, fetcher, DefaultConfig())

	data, err := c.Resolve(context.Background(), types.WidgetSpec{
		ID: "w1",
		DataSource: types.DataSource{
			Kind: types.SourceLive,
			Config: types.SourceConfig{
				SourceID: "s1",
				Data:     []any{"default"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"default"}, data)
}

func TestResolveFetchErrorWithoutFallback(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	c := newTestController(t, fetcher, DefaultConfig())

	_, err := c.Resolve(context.Background(), types.WidgetSpec{
		ID: "w1",
		DataSource: types.DataSource{
			Kind:   types.SourceLive,
			Config: types.SourceConfig{SourceID: "s1"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestRenderReady(t *testing.T) {
	c := newTestController(t, &fakeFetcher{}, DefaultConfig())

	outcome := c.Render(context.Background(), types.WidgetSpec{
		ID:              "w1",
		ComponentSource: countingSource,
		DataSource: types.DataSource{
			Kind:   types.SourceStatic,
			Config: types.SourceConfig{Data: []any{map[string]any{}, map[string]any{}, map[string]any{}}},
		},
	})

	assert.Equal(t, types.StateReady, outcome.State)
	assert.False(t, outcome.TimedOut)
	assert.Contains(t, outcome.HTML, "3 items")
	assert.Empty(t, outcome.Error)
	assert.NotZero(t, outcome.Fingerprint)
}

func TestRenderError(t *testing.T) {
	c := newTestController(t, &fakeFetcher{}, DefaultConfig())

	outcome := c.Render(context.Background(), types.WidgetSpec{
		ID:              "w1",
		ComponentSource: `function Widget({data}) { throw new Error('boom'); }`,
		DataSource:      types.DataSource{Kind: types.SourceStatic},
	})

	assert.Equal(t, types.StateError, outcome.State)
	assert.Contains(t, outcome.Error, "boom")
	assert.Empty(t, outcome.DataError)
}

func TestRenderDataError(t *testing.T) {
	c := newTestController(t, &fakeFetcher{err: errors.New("no route")}, DefaultConfig())

	outcome := c.Render(context.Background(), types.WidgetSpec{
		ID:              "w1",
		ComponentSource: countingSource,
		DataSource: types.DataSource{
			Kind:   types.SourceLive,
			Config: types.SourceConfig{SourceID: "s1"},
		},
	})

	assert.Equal(t, types.StateError, outcome.State)
	assert.Contains(t, outcome.DataError, "no route")
	assert.True(t, outcome.Retryable)
	assert.Empty(t, outcome.Error)
}

func TestRenderIsolation(t *testing.T) {
	c := newTestController(t, &fakeFetcher{}, DefaultConfig())

	broken := c.Render(context.Background(), types.WidgetSpec{
		ID:              "broken",
		ComponentSource: `function Widget({data}) { throw new Error('dead'); }`,
		DataSource:      types.DataSource{Kind: types.SourceStatic},
	})
	assert.Equal(t, types.StateError, broken.State)

	healthy := c.Render(context.Background(), types.WidgetSpec{
		ID:              "healthy",
		ComponentSource: countingSource,
		DataSource: types.DataSource{
			Kind:   types.SourceStatic,
			Config: types.SourceConfig{Data: []any{1.0}},
		},
	})
	assert.Equal(t, types.StateReady, healthy.State)
	assert.Contains(t, healthy.HTML, "1 items")
}

func TestRenderTimeoutBackstop(t *testing.T) {
	cfg := Config{ReadyTimeout: 150 * time.Millisecond, Grace: 50 * time.Millisecond}
	c := newTestController(t, &fakeFetcher{}, cfg)

	// The loop outlives the ready ceiling; loading still clears.
	outcome := c.Render(context.Background(), types.WidgetSpec{
		ID:              "w1",
		ComponentSource: `function Widget({data}) { var end = Date.now() + 2000; while (Date.now() < end) {} }`,
		DataSource:      types.DataSource{Kind: types.SourceStatic},
	})

	assert.Equal(t, types.StateReady, outcome.State)
	assert.True(t, outcome.TimedOut)
}

func TestRetryForcesFetch(t *testing.T) {
	fetcher := &fakeFetcher{payload: []any{map[string]any{"n": 1.0}}}
	c := newTestController(t, fetcher, DefaultConfig())

	spec := types.WidgetSpec{
		ID:              "w1",
		ComponentSource: countingSource,
		DataSource: types.DataSource{
			Kind:   types.SourceLive,
			Config: types.SourceConfig{SourceID: "s1"},
		},
		CachedData: []any{map[string]any{}, map[string]any{}},
	}

	first := c.Render(context.Background(), spec)
	assert.Contains(t, first.HTML, "2 items")
	assert.Equal(t, int32(0), fetcher.calls.Load())

	retried := c.Retry(context.Background(), spec)
	assert.Contains(t, retried.HTML, "1 items")
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestDocumentEmbedsResolvedData(t *testing.T) {
	c := newTestController(t, &fakeFetcher{}, DefaultConfig())

	html, err := c.Document(context.Background(), types.WidgetSpec{
		ID:              "w1",
		ComponentSource: countingSource,
		DataSource: types.DataSource{
			Kind:   types.SourceStatic,
			Config: types.SourceConfig{Data: map[string]any{"results": []any{map[string]any{"a": 1.0}}}},
		},
	})
	require.NoError(t, err)

	// The envelope is unwrapped before embedding.
	assert.Contains(t, html, `[{"a":1}]`)
	assert.NotContains(t, html, `"results"`)
}
