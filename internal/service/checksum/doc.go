// Package checksum hashes files for the sha1, sha256 and sha512 verbs and for
// release bookkeeping.
package checksum
