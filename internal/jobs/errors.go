package jobs

import "errors"

var (
	// ErrInvalidInput rejects a request before any store access
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateSerial means the serial is already registered as a current unit
	ErrDuplicateSerial = errors.New("serial number already in use")
	// ErrConstraintViolation means the store refused a write on a unique key,
	// usually because a concurrent request registered the same serial first
	ErrConstraintViolation = errors.New("unique constraint violation")
	// ErrNotFound means the referenced row key does not exist
	ErrNotFound = errors.New("job not found")
	// ErrStorageUnavailable wraps any other store fault
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrForbidden means the actor lacks the admin capability
	ErrForbidden = errors.New("admin capability required")
)

// IsSerialConflict reports whether err rejects a serial as already used,
// either by the resolver pre-check or by the store's unique index.
func IsSerialConflict(err error) bool {
	return errors.Is(err, ErrDuplicateSerial) || errors.Is(err, ErrConstraintViolation)
}
