// Package snapaware detects binaries that take part in the install lifecycle.
//
// A spec-aware binary embeds a marker record:
//
//	offset  size  field
//	0       8     magic "SNAPXAWR"
//	8       2     record format version (1), little endian
//	10      4     minimum protocol version, little endian
//
// ELF and PE binaries carry the record in a section named ".snapx". Other
// files are searched byte by byte. The binary is never loaded or run.
package snapaware
