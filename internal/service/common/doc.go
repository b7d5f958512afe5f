// Package common holds plumbing shared by the release verbs: settings, spec
// resolution, feed folders and the release lock.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
