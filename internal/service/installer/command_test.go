package installer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/snapx/internal/config"
	"github.com/oshokin/snapx/internal/platform"
)

func TestParseShortcuts(t *testing.T) {
	t.Parallel()

	folders, err := ParseShortcuts([]string{"Desktop", " startmenu "})
	require.NoError(t, err)
	require.Equal(t, []platform.SpecialFolder{platform.FolderDesktop, platform.FolderStartMenu}, folders)

	folders, err = ParseShortcuts(nil)
	require.NoError(t, err)
	require.Empty(t, folders)

	_, err = ParseShortcuts([]string{"taskbar"})
	require.ErrorIs(t, err, errUnknownShortcut)
}

func TestRunInstallsPackage(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "demoapp")

	err := Run(context.Background(), &CommandOptions{
		ConfigPath:  filepath.Join(t.TempDir(), "missing.yaml"),
		PackagePath: writePackage(t, "2.0.0"),
		RootDir:     root,
	})
	require.NoError(t, err)

	current, err := CurrentVersion(root)
	require.NoError(t, err)
	require.Equal(t, "2.0.0", current)
}

func TestRunRequiresPackage(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Run(context.Background(), &CommandOptions{}), errPackageRequired)
}

func TestRunWithLockRequiresLockServer(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "demoapp")

	err := Run(context.Background(), &CommandOptions{
		ConfigPath:  filepath.Join(t.TempDir(), "missing.yaml"),
		PackagePath: writePackage(t, "2.0.0"),
		RootDir:     root,
		LockName:    "demoapp-install",
	})
	require.ErrorIs(t, err, config.ErrLockServerRequired)
	require.NoDirExists(t, root)
}
