// Package release moves published releases between channels and cleans up
// feed folders.
//
// Promote, Demote and GC hold the release lock for the app id while they edit
// the release index; List only reads it.
package release
