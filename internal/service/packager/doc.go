// Package packager builds release packages into a folder feed.
//
// Pack validates the application spec, takes the release lock for the app id,
// writes "<id>_<version>_<rid>_snapx.nupkg" with a nuspec manifest and the
// payload under lib/<framework>/, and records the release in the feed's
// release index with its SHA-512 checksum.
package packager
