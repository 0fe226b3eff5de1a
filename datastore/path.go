package datastore

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FolderName is the per-feature directory holding datastore files.
func FolderName() string {
	return fmt.Sprintf("datastore-v%d", FormatVersion)
}

// IsKeyInvalid reports whether key may not be used as a datastore key. Keys
// are file names, so only ASCII letters and digits are accepted; anything
// else (separators, dots, spaces) could escape the feature directory.
func IsKeyInvalid(key string) bool {
	if key == "" {
		return true
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return true
		}
	}
	return false
}

// isSafeSegment accepts feature names and instance ids: any non-empty single
// path element other than "." and "..".
func isSafeSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`+"\x00")
}

// Resolver maps keys to file paths for one feature.
type Resolver struct {
	StorageDir string
	InstanceID string
	Feature    string
}

// Dir returns the directory holding the feature's datastore files.
func (r Resolver) Dir() string {
	parts := []string{r.StorageDir}
	if r.InstanceID != "" {
		parts = append(parts, r.InstanceID)
	}
	parts = append(parts, r.Feature, FolderName())
	return filepath.Join(parts...)
}

// Resolve returns the file path for key, or ErrInvalidKey.
func (r Resolver) Resolve(key string) (string, error) {
	if IsKeyInvalid(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(r.Dir(), key), nil
}
