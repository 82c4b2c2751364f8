package device

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectEmpty indicates the data-object slot was never written.
	ErrObjectEmpty = errors.New("device: object never written")

	// ErrObjectTooLarge indicates a write exceeding the device's object capacity.
	ErrObjectTooLarge = errors.New("device: object exceeds device capacity")

	// ErrAuth indicates the administrative credential was rejected.
	ErrAuth = errors.New("device: authentication failed")

	// ErrNoKey indicates the requested key slot holds no key.
	ErrNoKey = errors.New("device: no key in slot")

	// ErrWrongAlgorithm indicates the slot key is not an EC P-256 key.
	ErrWrongAlgorithm = errors.New("device: key is not EC P-256")

	// ErrPinBlocked indicates the PIN retry counter is exhausted.
	ErrPinBlocked = errors.New("device: PIN blocked")

	// ErrEjected indicates the token disconnected mid-operation. Writes in
	// flight may or may not have reached the slot.
	ErrEjected = errors.New("device: token ejected")

	// ErrIO indicates a transient transport error; the operation may be retried.
	ErrIO = errors.New("device: I/O error")
)

// PinError reports a rejected user PIN together with the device's remaining
// retry count. Retries is -1 when the device does not report a count.
type PinError struct {
	Retries int
}

func (e *PinError) Error() string {
	if e.Retries < 0 {
		return "device: wrong PIN"
	}
	return fmt.Sprintf("device: wrong PIN (%d retries remaining)", e.Retries)
}

// IsTransient reports whether err is a retryable device I/O error, as opposed
// to a fatal condition such as ejection or rejected credentials.
func IsTransient(err error) bool {
	return errors.Is(err, ErrIO) && !errors.Is(err, ErrEjected)
}
