package mutex

import "errors"

var (
	// ErrLockContention means the lock could not be acquired within the allowed attempts.
	ErrLockContention = errors.New("lock is held by another owner")
	// ErrLockLost means the lease could not be renewed while the protected work was running.
	ErrLockLost = errors.New("lock lease was lost")
)
