package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// desktopEntryExt is the freedesktop.org launcher extension.
const desktopEntryExt = ".desktop"

// desktopEntry renders a freedesktop.org launcher for shortcut.
func desktopEntry(shortcut *Shortcut) string {
	var builder strings.Builder

	builder.WriteString("[Desktop Entry]\n")
	builder.WriteString("Type=Application\n")
	builder.WriteString("Version=1.0\n")
	fmt.Fprintf(&builder, "Name=%s\n", shortcut.Name)

	if shortcut.Description != "" {
		fmt.Fprintf(&builder, "Comment=%s\n", shortcut.Description)
	}

	fmt.Fprintf(&builder, "Exec=%s\n", quoteExec(shortcut.Target))

	if shortcut.WorkingDir != "" {
		fmt.Fprintf(&builder, "Path=%s\n", shortcut.WorkingDir)
	}

	builder.WriteString("Terminal=false\n")

	return builder.String()
}

// writeDesktopEntry writes shortcut into dir and returns the file path.
func writeDesktopEntry(dir string, shortcut *Shortcut) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, shortcutFilename(shortcut.Name)+desktopEntryExt)

	//nolint:gosec // Launchers must be executable for desktop environments to trust them.
	if err := os.WriteFile(path, []byte(desktopEntry(shortcut)), 0o755); err != nil {
		return "", err
	}

	return path, nil
}

// quoteExec quotes an Exec value when it contains reserved characters.
func quoteExec(target string) string {
	if !strings.ContainsAny(target, " \t\"'\\$`") {
		return target
	}

	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

	return `"` + replacer.Replace(target) + `"`
}

// shortcutFilename removes characters that are unsafe in file names.
func shortcutFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}

		return r
	}, name)
}
