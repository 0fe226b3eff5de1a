package datastore_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/datastore/datastore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := datastore.DefaultConfig()

	assert.Equal(t, 30*24*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 0, cfg.CurrentVersion)
	assert.ErrorIs(t, cfg.Validate(), datastore.ErrInvalidConfig, "storage dir is required")
}

func TestConfig_Merge(t *testing.T) {
	cfg := datastore.DefaultConfig()
	cfg.Merge(&datastore.Config{
		StorageDir:     "/tmp/x",
		CurrentVersion: 4,
	})

	assert.Equal(t, "/tmp/x", cfg.StorageDir)
	assert.Equal(t, 4, cfg.CurrentVersion)
	assert.Equal(t, datastore.DefaultStaleAfter, cfg.StaleAfter, "zero values do not override")

	cfg.Merge(&datastore.Config{InstanceID: "i1", StaleAfter: time.Hour})
	assert.Equal(t, "i1", cfg.InstanceID)
	assert.Equal(t, time.Hour, cfg.StaleAfter)
	assert.Equal(t, "/tmp/x", cfg.StorageDir)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     datastore.Config
		wantErr bool
	}{
		{"minimal", datastore.Config{StorageDir: "d"}, false},
		{"with instance", datastore.Config{StorageDir: "d", InstanceID: "abc-1"}, false},
		{"instance escapes", datastore.Config{StorageDir: "d", InstanceID: "../x"}, true},
		{"negative version", datastore.Config{StorageDir: "d", CurrentVersion: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, datastore.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore.yaml")
	yaml := "storage_dir: /var/lib/app\ninstance_id: main\ncurrent_version: 2\nstale_after: 48h\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := datastore.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/app", cfg.StorageDir)
	assert.Equal(t, "main", cfg.InstanceID)
	assert.Equal(t, 2, cfg.CurrentVersion)
	assert.Equal(t, 48*time.Hour, cfg.StaleAfter)
}

func TestLoadConfig_DefaultsApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_dir: d\n"), 0o644))

	cfg, err := datastore.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, datastore.DefaultStaleAfter, cfg.StaleAfter)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := datastore.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_dir: [unclosed"), 0o644))
	_, err = datastore.LoadConfig(path)
	assert.Error(t, err)
}
