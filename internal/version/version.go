package version

import (
	"fmt"
	"runtime"
)

// Build metadata, set with -ldflags "-X github.com/oshokin/snapx/internal/version.Version=...".
var (
	// Version is the release version of the snapx binary.
	Version = "0.0.0-dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the version.
func Short() string {
	return Version
}

// Full returns the version with commit, build time and platform.
func Full() string {
	return fmt.Sprintf("snapx %s (commit %s, built %s, %s/%s, %s)",
		Version, Commit, BuildTime, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// UserAgent identifies snapx to the lock service.
func UserAgent() string {
	return "snapx/" + Version
}
