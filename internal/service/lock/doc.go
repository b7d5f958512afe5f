// Package lock implements the lock and unlock verbs used to hold or break a
// release lock by hand.
package lock
