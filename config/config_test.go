package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, uint8(0x9e), cfg.KeySlot)
	assert.Equal(t, 16, cfg.ObjectCount)
	assert.Equal(t, 3052, cfg.ObjectSize)
}

func TestValidateConfig(t *testing.T) {
	valid := Default()
	valid.Reader = "Yubico YubiKey OTP+FIDO+CCID 00 00"

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid hardware", func(c *Config) {}, nil},
		{"valid emulator", func(c *Config) { c.Reader = ""; c.EmulatorPath = "/tmp/token.db" }, nil},
		{"no device", func(c *Config) { c.Reader = "" }, ErrNoDevice},
		{"zero objects", func(c *Config) { c.ObjectCount = 0 }, ErrInvalidObjectCount},
		{"too many objects", func(c *Config) { c.ObjectCount = 17 }, ErrInvalidObjectCount},
		{"object size too small", func(c *Config) { c.ObjectSize = 100 }, ErrInvalidObjectSize},
		{"object size too large", func(c *Config) { c.ObjectSize = 4000 }, ErrInvalidObjectSize},
		{"bad management key", func(c *Config) { c.ManagementKey = "not-hex" }, ErrInvalidManagementKey},
		{"good management key", func(c *Config) { c.ManagementKey = "0102030405060708" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
