package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/JaimeStill/gradebook/pkg/formatting"
)

const (
	EnvImportsMaxSnapshotSize = "GRADEBOOK_IMPORTS_MAX_SNAPSHOT_SIZE"
	EnvImportsConcurrency     = "GRADEBOOK_IMPORTS_CONCURRENCY"
	EnvImportsArchivePrefix   = "GRADEBOOK_IMPORTS_ARCHIVE_PREFIX"
)

// ImportsConfig bounds snapshot intake and batch fan-out.
type ImportsConfig struct {
	MaxSnapshotSize string `toml:"max_snapshot_size"`
	Concurrency     int    `toml:"concurrency"`
	ArchivePrefix   string `toml:"archive_prefix"`
}

// MaxSnapshotSizeBytes returns MaxSnapshotSize parsed as a byte count.
func (c *ImportsConfig) MaxSnapshotSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxSnapshotSize)
	if err != nil {
		return 10 * 1024 * 1024 // 10MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ImportsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ImportsConfig) Merge(overlay *ImportsConfig) {
	if overlay.MaxSnapshotSize != "" {
		c.MaxSnapshotSize = overlay.MaxSnapshotSize
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.ArchivePrefix != "" {
		c.ArchivePrefix = overlay.ArchivePrefix
	}
}

func (c *ImportsConfig) loadDefaults() {
	if c.MaxSnapshotSize == "" {
		c.MaxSnapshotSize = "10MB"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.ArchivePrefix == "" {
		c.ArchivePrefix = "snapshots"
	}
}

func (c *ImportsConfig) loadEnv() {
	if v := os.Getenv(EnvImportsMaxSnapshotSize); v != "" {
		c.MaxSnapshotSize = v
	}
	if v := os.Getenv(EnvImportsConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv(EnvImportsArchivePrefix); v != "" {
		c.ArchivePrefix = v
	}
}

func (c *ImportsConfig) validate() error {
	size, err := formatting.ParseBytes(c.MaxSnapshotSize)
	if err != nil {
		return fmt.Errorf("invalid max_snapshot_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_snapshot_size must be positive")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if strings.Contains(c.ArchivePrefix, "..") {
		return fmt.Errorf("archive_prefix must not contain '..'")
	}
	return nil
}
