package datastore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the on-disk layout version. It names the folder that
// holds a feature's files, so a future layout change starts from an empty
// namespace instead of misreading old files.
const FormatVersion = 0

// DefaultStaleAfter is how long a value survives without being rewritten.
const DefaultStaleAfter = 30 * 24 * time.Hour

// Config holds datastore initialization parameters shared by every feature
// handler.
type Config struct {
	// StorageDir is the root directory for all features.
	StorageDir string `yaml:"storage_dir" json:"storage_dir,omitempty"`
	// InstanceID optionally namespaces the files of one SDK instance.
	InstanceID string `yaml:"instance_id" json:"instance_id,omitempty"`
	// CurrentVersion is the schema version files are expected to carry when
	// a read does not request a specific version. Older files are purged.
	CurrentVersion int `yaml:"current_version" json:"current_version,omitempty"`
	// StaleAfter is the retention window. A negative value disables expiry.
	StaleAfter time.Duration `yaml:"stale_after" json:"stale_after,omitempty"`
}

// DefaultConfig returns the default configuration. StorageDir must still be
// provided.
func DefaultConfig() Config {
	return Config{
		StaleAfter: DefaultStaleAfter,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.StorageDir != "" {
		c.StorageDir = source.StorageDir
	}
	if source.InstanceID != "" {
		c.InstanceID = source.InstanceID
	}
	if source.CurrentVersion != 0 {
		c.CurrentVersion = source.CurrentVersion
	}
	if source.StaleAfter != 0 {
		c.StaleAfter = source.StaleAfter
	}
}

// Validate reports whether c can back a handler.
func (c *Config) Validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("%w: storage_dir is required", ErrInvalidConfig)
	}
	if c.InstanceID != "" && !isSafeSegment(c.InstanceID) {
		return fmt.Errorf("%w: instance_id %q is not a safe path segment", ErrInvalidConfig, c.InstanceID)
	}
	if c.CurrentVersion < 0 {
		return fmt.Errorf("%w: current_version must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML (or JSON) config file, merges it with defaults,
// and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
