package lease

import "errors"

var (
	// ErrConflict is returned when the lock is held by someone else.
	ErrConflict = errors.New("lock is held by another owner")
	// ErrLeaseGone is returned when the lease to renew or release no longer exists.
	ErrLeaseGone = errors.New("lease is gone")
	// ErrInvalidRequest is returned for malformed input.
	ErrInvalidRequest = errors.New("invalid lock request")
)
