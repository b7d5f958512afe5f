//go:build linux

package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// linuxCapability creates freedesktop.org launchers in XDG folders.
type linuxCapability struct {
	*base
}

func newCapability(b *base) Capability {
	return &linuxCapability{base: b}
}

func (c *linuxCapability) GetSpecialFolder(folder SpecialFolder) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	switch folder {
	case FolderDesktop:
		if dir := os.Getenv("XDG_DESKTOP_DIR"); dir != "" {
			return dir, nil
		}

		return filepath.Join(home, "Desktop"), nil
	case FolderStartMenu:
		return filepath.Join(dataHome, "applications"), nil
	case FolderLocalAppData:
		return dataHome, nil
	default:
		return "", fmt.Errorf("special folder %q: %w", folder, ErrNotSupported)
	}
}

func (c *linuxCapability) CreateShortcuts(ctx context.Context, shortcut *Shortcut) error {
	for _, location := range shortcut.Locations {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir, err := c.GetSpecialFolder(location)
		if err != nil {
			return err
		}

		path, err := writeDesktopEntry(dir, shortcut)
		if err != nil {
			return fmt.Errorf("create %s shortcut: %w", location, err)
		}

		c.log.Infow("Created shortcut", "location", location, "path", path)
	}

	return nil
}
