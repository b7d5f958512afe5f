// Package version holds the snapx build metadata injected with -ldflags
// and the `version` subcommand.
package version
