package pkgextract

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageCorrupt is returned when the archive cannot be opened or has no usable payload.
	ErrPackageCorrupt = errors.New("package is corrupt")
	// ErrClosed is returned when an extractor is used after Close.
	ErrClosed = errors.New("extractor is closed")
)

// ExtractionIOError is returned when writing to the destination fails.
// Output written before the failure is left in place.
type ExtractionIOError struct {
	// Path is the destination path that failed.
	Path string
	// Err is the underlying filesystem error.
	Err error
}

func (e *ExtractionIOError) Error() string {
	return fmt.Sprintf("extract to %s: %v", e.Path, e.Err)
}

func (e *ExtractionIOError) Unwrap() error {
	return e.Err
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPackageCorrupt, fmt.Sprintf(format, args...))
}
