package installer

import (
	"context"

	"github.com/oshokin/snapx/internal/pkgextract"
	"github.com/oshokin/snapx/internal/snapaware"
)

// Observer is told about install progress.
type Observer interface {
	// Extracted is called after each payload entry is written.
	Extracted(event pkgextract.Event)
	// ExistingBinaries is called with the spec-aware binaries of the current
	// install before their processes are terminated.
	ExistingBinaries(ctx context.Context, binaries []snapaware.Binary)
}

// nopObserver ignores every notification.
type nopObserver struct{}

func (nopObserver) Extracted(pkgextract.Event) {}

func (nopObserver) ExistingBinaries(context.Context, []snapaware.Binary) {}
