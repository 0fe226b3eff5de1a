package datastore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/observability"
	"github.com/tailored-agentic-units/datastore/tlv"
)

var (
	stringSerializer = datastore.SerializerFunc[string](func(s string) ([]byte, error) {
		return []byte(s), nil
	})
	stringDeserializer = datastore.DeserializerFunc[string](func(b []byte) (string, error) {
		return string(b), nil
	})
	failingSerializer = datastore.SerializerFunc[string](func(string) ([]byte, error) {
		return nil, errors.New("boom")
	})
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	h     *datastore.FileHandler
	rec   *observability.Recorder
	clock *fakeClock
	root  string
}

func newFixture(t *testing.T, mutate func(*datastore.Config), opts ...datastore.Option) *fixture {
	t.Helper()

	root := t.TempDir()
	cfg := datastore.DefaultConfig()
	cfg.StorageDir = root
	if mutate != nil {
		mutate(&cfg)
	}

	rec := observability.NewRecorder()
	clock := newFakeClock()
	opts = append([]datastore.Option{
		datastore.WithObserver(rec),
		datastore.WithClock(clock.Now),
	}, opts...)

	h, err := datastore.New("rum", cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		h.Close(context.Background())
	})

	return &fixture{h: h, rec: rec, clock: clock, root: root}
}

func (f *fixture) path(t *testing.T, key string) string {
	t.Helper()
	p, err := f.h.Path(key)
	require.NoError(t, err)
	return p
}

// writeRaw places bytes directly at the file backing key.
func (f *fixture) writeRaw(t *testing.T, key string, data []byte) string {
	t.Helper()
	p := f.path(t, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func (f *fixture) writeBlocks(t *testing.T, key string, blocks ...tlv.Block) string {
	t.Helper()
	return f.writeRaw(t, key, tlv.Encode(blocks...))
}

func (f *fixture) get(t *testing.T, key string, opts ...datastore.ReadOption) datastore.Result[string] {
	t.Helper()
	r, err := datastore.GetSync(testContext(t), f.h, key, stringDeserializer, opts...)
	require.NoError(t, err)
	return r
}

func (f *fixture) set(t *testing.T, key, value string, version int) {
	t.Helper()
	require.NoError(t, datastore.SetSync(testContext(t), f.h, key, value, version, stringSerializer))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
