package lease

import "time"

// MaxDuration bounds the TTL a client can request.
const MaxDuration = 24 * time.Hour

// Lease is a time-bounded grant of a named lock.
type Lease struct {
	// Name is the lock key, typically an app id or a release-operation scope.
	Name string
	// Challenge proves the holder's right to renew or release the lease.
	Challenge string
	// Owner describes who holds the lease (host and user), for diagnostics only.
	Owner string
	// Duration is the TTL applied on acquisition and on every renewal.
	Duration time.Duration
	// AcquiredAt is when the lease was granted.
	AcquiredAt time.Time
	// ExpiresAt is when the lease lapses unless renewed.
	ExpiresAt time.Time
}

// Clone returns a copy of the lease.
func (l *Lease) Clone() *Lease {
	if l == nil {
		return nil
	}

	cloned := *l

	return &cloned
}

// Expired reports whether the lease has lapsed at now.
func (l *Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Held reports whether the lease is live and can still be renewed or released with a challenge.
func (l *Lease) Held(now time.Time) bool {
	return l.Challenge != "" && !l.Expired(now)
}
