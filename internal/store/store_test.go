package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDashboardRoundtrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveDashboard(&Dashboard{ID: "d1", Name: "Music", Theme: "modern"}))

	d, err := s.GetDashboard("d1")
	require.NoError(t, err)
	assert.Equal(t, "Music", d.Name)

	_, err = s.GetDashboard("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWidgetsWithCache(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveDashboard(&Dashboard{ID: "d1", Name: "Music"}))
	require.NoError(t, s.SaveWidget(&Widget{ID: "w1", DashboardID: "d1", Title: "Top Tracks", Position: 1}))
	require.NoError(t, s.SaveWidget(&Widget{ID: "w2", DashboardID: "d1", Title: "Top Artists", Position: 0}))
	require.NoError(t, s.UpsertCache("w1", `[{"name":"song"}]`))

	widgets, err := s.WidgetsWithCache("d1")
	require.NoError(t, err)
	require.Len(t, widgets, 2)

	// Ordered by position.
	assert.Equal(t, "w2", widgets[0].ID)
	assert.Equal(t, "w1", widgets[1].ID)

	assert.Empty(t, widgets[0].CachedData)
	assert.Nil(t, widgets[0].CacheUpdatedAt)

	assert.Equal(t, `[{"name":"song"}]`, widgets[1].CachedData)
	require.NotNil(t, widgets[1].CacheUpdatedAt)
}

func TestUpsertCacheReplaces(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertCache("w1", `[1]`))
	first, err := s.GetCache("w1")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.UpsertCache("w1", `[1,2]`))

	second, err := s.GetCache("w1")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, second.DataJSON)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt) || second.UpdatedAt.Equal(first.UpdatedAt))

	var count int64
	require.NoError(t, s.db.Model(&WidgetDataCache{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteWidgetRemovesCache(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveWidget(&Widget{ID: "w1", DashboardID: "d1"}))
	require.NoError(t, s.UpsertCache("w1", `[]`))

	require.NoError(t, s.DeleteWidget("w1"))

	_, err := s.GetWidget("w1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetCache("w1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSources(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveSource(&DataSource{
		ID:       "lastfm-top-tracks",
		Name:     "Top Tracks",
		Kind:     "live",
		Endpoint: "/top-tracks",
	}))
	require.NoError(t, s.SaveSource(&DataSource{
		ID:         "demo-static",
		Name:       "Demo",
		Kind:       "static",
		StaticJSON: `[{"label":"a","value":1}]`,
	}))

	src, err := s.GetSource("lastfm-top-tracks")
	require.NoError(t, err)
	assert.Equal(t, "/top-tracks", src.Endpoint)

	all, err := s.ListSources()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.GetSource("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
