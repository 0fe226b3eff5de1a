package datastore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/datastore/datastore"
)

func TestIsKeyInvalid(t *testing.T) {
	tests := []struct {
		key     string
		invalid bool
	}{
		{"abc123", false},
		{"anonymousid", false},
		{"ABCxyz09", false},
		{"", true},
		{"a/b", true},
		{"..", true},
		{"a.b", true},
		{"a b", true},
		{"a-b", true},
		{"a_b", true},
		{`a\b`, true},
		{"clé", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.invalid, datastore.IsKeyInvalid(tt.key))
		})
	}
}

func TestResolver(t *testing.T) {
	root := filepath.Join("var", "data")

	r := datastore.Resolver{StorageDir: root, Feature: "rum"}
	assert.Equal(t, filepath.Join(root, "rum", "datastore-v0"), r.Dir())

	r.InstanceID = "abc"
	assert.Equal(t, filepath.Join(root, "abc", "rum", "datastore-v0"), r.Dir())

	p, err := r.Resolve("key1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "abc", "rum", "datastore-v0", "key1"), p)

	_, err = r.Resolve("../key1")
	assert.ErrorIs(t, err, datastore.ErrInvalidKey)
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "datastore-v0", datastore.FolderName())
}
