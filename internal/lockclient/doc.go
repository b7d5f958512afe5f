// Package lockclient talks to the lock service over HTTP or gRPC.
//
// Both transports implement Client. Contention on Acquire is reported as
// ErrConflict; a Renew or Unlock against a lease that no longer exists is
// reported as ErrLeaseGone. Everything else is a transport error.
package lockclient
