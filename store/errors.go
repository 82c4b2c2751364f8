package store

import "errors"

var (
	// ErrNotFormatted indicates object 0 is missing or carries the wrong
	// magic. Only format recovers from this.
	ErrNotFormatted = errors.New("store: device is not formatted")

	// ErrObjectTooShort indicates an object record shorter than its
	// declared layout requires.
	ErrObjectTooShort = errors.New("store: object record too short")

	// ErrCorruptHeader indicates an object header disagreeing with the
	// store-wide parameters of object 0, or carrying malformed blob
	// metadata. Sanitize resets such slots.
	ErrCorruptHeader = errors.New("store: corrupt object header")

	// ErrStoreFull indicates no free slot is available after sanitize.
	ErrStoreFull = errors.New("store: no free object available")

	// ErrNotFound indicates no head chunk carries the requested blob name.
	ErrNotFound = errors.New("store: blob not found")

	// ErrInvalidName indicates a blob name that is empty, longer than 255
	// UTF-8 bytes, or too long for the store's object size.
	ErrInvalidName = errors.New("store: invalid blob name")

	// ErrBadObjectCount indicates an object count outside [1, 16].
	ErrBadObjectCount = errors.New("store: object count out of range")

	// ErrBadObjectSize indicates an object size outside the supported range.
	ErrBadObjectSize = errors.New("store: object size out of range")

	// ErrValueRange indicates a field value that does not fit its declared
	// byte width during encoding.
	ErrValueRange = errors.New("store: field value out of range")
)
