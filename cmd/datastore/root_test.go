package main

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/observability"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_SetGetDelete(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "set", "--storage-dir", dir, "-f", "rum", "--version", "2", "anonymousid", "abc123")
	require.NoError(t, err)
	assert.Contains(t, out, `stored 6 B under "anonymousid"`)

	out, err = run(t, "get", "--storage-dir", dir, "-f", "rum", "anonymousid")
	require.NoError(t, err)
	assert.Contains(t, out, "version:     2")
	assert.Contains(t, out, "abc123")

	out, err = run(t, "get", "--storage-dir", dir, "-f", "rum", "--raw", "anonymousid")
	require.NoError(t, err)
	assert.Equal(t, "abc123", out)

	out, err = run(t, "get", "--storage-dir", dir, "-f", "rum", "--version", "3", "anonymousid")
	require.NoError(t, err)
	assert.Contains(t, out, "no data")

	_, err = run(t, "delete", "--storage-dir", dir, "-f", "rum", "anonymousid")
	require.NoError(t, err)
	out, err = run(t, "get", "--storage-dir", dir, "-f", "rum", "anonymousid")
	require.NoError(t, err)
	assert.Contains(t, out, "no data")
}

func TestCLI_GetPrettyPrintsJSON(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "set", "--storage-dir", dir, "cfg", `{"a":1,"b":[true]}`)
	require.NoError(t, err)

	out, err := run(t, "get", "--storage-dir", dir, "cfg")
	require.NoError(t, err)
	assert.Contains(t, out, "{\n  \"a\": 1,")
}

func TestCLI_SetFromFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(t.TempDir(), "value.bin")
	require.NoError(t, os.WriteFile(src, []byte{0x00, 0x01, 0xff}, 0o644))

	_, err := run(t, "set", "--storage-dir", dir, "--from-file", src, "blob")
	require.NoError(t, err)

	out, err := run(t, "get", "--storage-dir", dir, "blob")
	require.NoError(t, err)
	assert.Contains(t, out, "00 01 ff")
}

func TestCLI_InvalidKey(t *testing.T) {
	out, err := run(t, "set", "--storage-dir", t.TempDir(), "a/b", "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, datastore.ErrInvalidKey)
	assert.Contains(t, out, `Datastore key \"a/b\" is invalid`)
}

func TestCLI_Clear(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "set", "--storage-dir", dir, "-f", "logs", "k", "v")
	require.NoError(t, err)

	out, err := run(t, "clear", "--storage-dir", dir, "-f", "logs")
	require.NoError(t, err)
	assert.Contains(t, out, `cleared feature "logs"`)

	_, statErr := os.Stat(filepath.Join(dir, "logs", datastore.FolderName()))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCLI_Inspect(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "set", "--storage-dir", dir, "--instance-id", "main", "--version", "5", "k", "hello")
	require.NoError(t, err)

	out, err := run(t, "inspect", "--storage-dir", dir, "--instance-id", "main", "k")
	require.NoError(t, err)

	assert.Contains(t, out, "blocks:   3")
	assert.Contains(t, out, "VERSION_CODE")
	assert.Contains(t, out, "version 5")
	assert.Contains(t, out, "LAST_UPDATE_DATE")
	assert.Contains(t, out, `"hello"`)
	assert.Contains(t, out, "verdict:  valid")

	path := filepath.Join(dir, "main", "core", datastore.FolderName(), "k")
	out, err = run(t, "inspect", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "file:     "+path)
}

func TestCLI_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "datastore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage_dir: "+dir+"\ninstance_id: fromfile\n"), 0o644))

	_, err := run(t, "set", "--config", cfgPath, "k", "v")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "fromfile", "core", datastore.FolderName(), "k"))
	assert.NoError(t, err)
}

func TestCLI_RemoteServer(t *testing.T) {
	reg, err := datastore.NewRegistry(datastore.Config{StorageDir: t.TempDir()})
	require.NoError(t, err)
	defer reg.Close(context.Background())

	srv := httptest.NewServer(newServeMux(reg, prometheus.NewRegistry()))
	defer srv.Close()

	_, err = run(t, "set", "--server", srv.URL, "-f", "rum", "k", "remote")
	require.NoError(t, err)

	out, err := run(t, "get", "--server", srv.URL, "-f", "rum", "--raw", "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", out)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	metrics := prometheus.NewRegistry()
	reg, err := datastore.NewRegistry(datastore.Config{StorageDir: t.TempDir()}, datastore.WithMetrics(metrics))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, newServeMux(reg, metrics), reg)
	}()

	h, err := reg.Handler("rum")
	require.NoError(t, err)
	require.NoError(t, datastore.SetSync(context.Background(), h, "k", []byte("v"), 0, codec.Bytes{}))

	resp, err := httptestGet("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	assert.True(t, strings.Contains(resp, "datastore_operations_total"))

	cancel()
	require.NoError(t, <-done)
}

func TestCLI_UnknownObserver(t *testing.T) {
	_, err := run(t, "get", "--storage-dir", t.TempDir(), "--observer", "missing", "k")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown observer: missing")
}

func TestCLI_NamedObserverReceivesEvents(t *testing.T) {
	rec := observability.NewRecorder()
	observability.RegisterObserver("clitest", rec)

	dir := t.TempDir()

	out, err := run(t, "get", "--storage-dir", dir, "--observer", "clitest", "bad.key")
	require.NoError(t, err)
	assert.Contains(t, out, "no data")

	_, err = run(t, "set", "--storage-dir", dir, "--observer", "clitest", "bad.key", "v")
	require.Error(t, err)

	events := rec.Find(datastore.EventInvalidKey)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, observability.LevelWarning, e.Level)
	}
}
