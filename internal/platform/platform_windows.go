//go:build windows

package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// powershell creates shell links through COM.
const powershell = "powershell.exe"

// windowsCapability creates .lnk shortcuts through PowerShell.
type windowsCapability struct {
	*base
}

func newCapability(b *base) Capability {
	return &windowsCapability{base: b}
}

func (c *windowsCapability) GetSpecialFolder(folder SpecialFolder) (string, error) {
	switch folder {
	case FolderDesktop:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}

		return filepath.Join(home, "Desktop"), nil
	case FolderStartMenu:
		appData, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve roaming app data: %w", err)
		}

		return filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs"), nil
	case FolderLocalAppData:
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}

		return "", fmt.Errorf("LOCALAPPDATA is not set: %w", ErrNotSupported)
	default:
		return "", fmt.Errorf("special folder %q: %w", folder, ErrNotSupported)
	}
}

func (c *windowsCapability) CreateShortcuts(ctx context.Context, shortcut *Shortcut) error {
	if len(shortcut.Locations) == 0 {
		return nil
	}

	dirs := make([]string, 0, len(shortcut.Locations))

	for _, location := range shortcut.Locations {
		dir, err := c.GetSpecialFolder(location)
		if err != nil {
			return err
		}

		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s folder: %w", location, err)
		}

		dirs = append(dirs, dir)
	}

	result, err := c.runner.Invoke(ctx, powershell, []string{
		"-NoProfile", "-NonInteractive", "-Command", shellLinkScript(shortcut, dirs),
	}, "")
	if err != nil {
		return fmt.Errorf("create shortcuts: %w", err)
	}

	if result.ExitCode != 0 {
		return fmt.Errorf("create shortcuts: powershell exited with %d: %s", result.ExitCode, result.Output)
	}

	c.log.Infow("Created shortcuts", "name", shortcut.Name, "locations", shortcut.Locations)

	return nil
}
