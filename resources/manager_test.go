package resources_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/observability"
	"github.com/tailored-agentic-units/datastore/resources"
)

func newHandler(t *testing.T, root string) *datastore.FileHandler {
	t.Helper()
	h, err := datastore.New("sessionreplay", datastore.Config{StorageDir: root})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close(context.Background()) })
	return h
}

func waitReady(t *testing.T, m *resources.Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.WaitReady(ctx))
	assert.True(t, m.Ready())
}

func TestManager_ColdStart(t *testing.T) {
	m := resources.NewManager(newHandler(t, t.TempDir()))
	waitReady(t, m)

	assert.False(t, m.WasSent("abc"))
	assert.Empty(t, m.Hashes())
}

func TestManager_PersistsAcrossRestart(t *testing.T) {
	root := t.TempDir()
	h := newHandler(t, root)

	m := resources.NewManager(h)
	waitReady(t, m)
	m.CacheHash("b")
	m.CacheHash("a")
	m.CacheHash("a")
	require.NoError(t, h.Flush(context.Background()))

	r, err := datastore.GetSync(context.Background(), h, resources.Key, codec.JSON[resources.Entry]{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Content.Data.Hashes)

	restarted := resources.NewManager(newHandler(t, root))
	waitReady(t, restarted)
	assert.True(t, restarted.WasSent("a"))
	assert.True(t, restarted.WasSent("b"))
	assert.False(t, restarted.WasSent("c"))
}

func TestManager_ExpiredEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, t.TempDir())
	now := time.Now()
	old := resources.Entry{
		LastUpdateMs: now.Add(-31 * 24 * time.Hour).UnixMilli(),
		Hashes:       []string{"stale"},
	}
	require.NoError(t, datastore.SetSync(ctx, h, resources.Key, old, resources.Version, codec.JSON[resources.Entry]{}))

	rec := observability.NewRecorder()
	m := resources.NewManager(h, resources.WithObserver(rec))
	waitReady(t, m)
	require.NoError(t, h.Flush(ctx))

	assert.False(t, m.WasSent("stale"))
	assert.Len(t, rec.Find(resources.EventExpired), 1)

	r, err := datastore.GetSync(ctx, h, resources.Key, codec.JSON[resources.Entry]{})
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusNoData, r.Status)
}

func TestManager_CustomExpiration(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, t.TempDir())
	now := time.Now()
	entry := resources.Entry{LastUpdateMs: now.Add(-2 * time.Hour).UnixMilli(), Hashes: []string{"x"}}
	require.NoError(t, datastore.SetSync(ctx, h, resources.Key, entry, resources.Version, codec.JSON[resources.Entry]{}))

	m := resources.NewManager(h, resources.WithExpiration(time.Hour), resources.WithClock(func() time.Time { return now }))
	waitReady(t, m)

	assert.False(t, m.WasSent("x"))
}

func TestManager_CacheBeforeLoadKeepsStoredHashes(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t, t.TempDir())
	stored := resources.Entry{LastUpdateMs: time.Now().UnixMilli(), Hashes: []string{"stored"}}
	require.NoError(t, datastore.SetSync(ctx, h, resources.Key, stored, resources.Version, codec.JSON[resources.Entry]{}))

	// Hold the worker so the initial read is still queued when CacheHash runs.
	release := make(chan struct{})
	h.Read("blocker", func(datastore.Result[[]byte]) { <-release })

	m := resources.NewManager(h)
	m.CacheHash("fresh")
	close(release)
	waitReady(t, m)
	require.NoError(t, h.Flush(ctx))

	assert.True(t, m.WasSent("stored"))
	assert.True(t, m.WasSent("fresh"))

	r, err := datastore.GetSync(ctx, h, resources.Key, codec.JSON[resources.Entry]{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "stored"}, r.Content.Data.Hashes)
}

func TestManager_NoOpHandler(t *testing.T) {
	m := resources.NewManager(datastore.NoOpHandler{})

	assert.True(t, m.Ready(), "no-op handler settles synchronously")
	m.CacheHash("a")
	assert.True(t, m.WasSent("a"))
}
