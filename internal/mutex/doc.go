// Package mutex implements a distributed mutex on top of the lock service.
//
// A Mutex moves through Idle, Acquiring, Acquired, Releasing and Disposed.
// While Acquired it renews its lease in the background; losing the lease
// clears Acquired and closes Lost. Dispose releases the lease at most once and
// only when one was granted, even if the caller's context is already canceled.
package mutex
