package platform

import (
	"fmt"
	"path/filepath"
	"strings"
)

// shellLinkExt is the Windows shortcut extension.
const shellLinkExt = ".lnk"

// shellLinkScript renders a PowerShell script creating a .lnk file in each dir
// through the WScript.Shell COM object.
func shellLinkScript(shortcut *Shortcut, dirs []string) string {
	var builder strings.Builder

	builder.WriteString("$ErrorActionPreference = 'Stop'\n")
	builder.WriteString("$shell = New-Object -ComObject WScript.Shell\n")

	for _, dir := range dirs {
		path := filepath.Join(dir, shortcutFilename(shortcut.Name)+shellLinkExt)

		fmt.Fprintf(&builder, "$link = $shell.CreateShortcut(%s)\n", psQuote(path))
		fmt.Fprintf(&builder, "$link.TargetPath = %s\n", psQuote(shortcut.Target))

		if shortcut.WorkingDir != "" {
			fmt.Fprintf(&builder, "$link.WorkingDirectory = %s\n", psQuote(shortcut.WorkingDir))
		}

		if shortcut.Description != "" {
			fmt.Fprintf(&builder, "$link.Description = %s\n", psQuote(shortcut.Description))
		}

		builder.WriteString("$link.Save()\n")
	}

	return builder.String()
}

// psQuote returns a single-quoted PowerShell literal.
func psQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
