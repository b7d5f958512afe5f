// Package platform is the single seam for operating-system specific actions.
//
// Callers request a Capability from Current and never branch on the host OS
// themselves. Actions without an implementation on the host fail with
// ErrNotSupported.
package platform
