// Package installer performs a clean install of a release package.
//
// The package payload is extracted to a staging directory next to the existing
// versions, spec-aware binaries of the running install are reported and shut
// down, the staging directory is renamed to app-<version> and the
// .snapx-current pointer is switched atomically. Installed spec-aware binaries
// are then notified and shortcuts are created.
//
// A canceled install is not rolled back: the staging directory may be left
// behind and is replaced by the next attempt.
package installer
