//go:build !linux && !windows

package platform

import (
	"context"
	"fmt"
)

// unsupportedCapability runs processes but has no desktop integration.
type unsupportedCapability struct {
	*base
}

func newCapability(b *base) Capability {
	return &unsupportedCapability{base: b}
}

func (c *unsupportedCapability) GetSpecialFolder(folder SpecialFolder) (string, error) {
	return "", fmt.Errorf("special folder %q on %s: %w", folder, c.goos, ErrNotSupported)
}

func (c *unsupportedCapability) CreateShortcuts(_ context.Context, _ *Shortcut) error {
	return fmt.Errorf("shortcuts on %s: %w", c.goos, ErrNotSupported)
}
