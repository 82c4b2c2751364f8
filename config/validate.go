package config

import (
	"encoding/hex"

	"github.com/douzebis/yb/store"
)

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.Reader == "" && cfg.Serial == "" && cfg.EmulatorPath == "" {
		return ErrNoDevice
	}
	if cfg.ObjectCount < store.MinObjectCount || cfg.ObjectCount > store.MaxObjectCount {
		return ErrInvalidObjectCount
	}
	if cfg.ObjectSize < store.MinObjectSize || cfg.ObjectSize > store.MaxObjectSize {
		return ErrInvalidObjectSize
	}
	if cfg.ManagementKey != "" {
		if _, err := hex.DecodeString(cfg.ManagementKey); err != nil {
			return ErrInvalidManagementKey
		}
	}
	return nil
}
