package config

import "errors"

var (
	// ErrNoDevice indicates neither a reader, a serial, nor an emulator
	// path is configured.
	ErrNoDevice = errors.New("config: no device selected")

	// ErrInvalidObjectCount indicates an object count outside [1, 16].
	ErrInvalidObjectCount = errors.New("config: object count out of range")

	// ErrInvalidObjectSize indicates an object size outside the supported range.
	ErrInvalidObjectSize = errors.New("config: object size out of range")

	// ErrInvalidManagementKey indicates the management key is not valid hex.
	ErrInvalidManagementKey = errors.New("config: management key is not hex")
)
