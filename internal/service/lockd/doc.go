// Package lockd implements the lock service: lease bookkeeping behind the
// Acquire/Renew/Unlock protocol, and the `snapx lockd` process that serves it
// over HTTP and gRPC.
package lockd
