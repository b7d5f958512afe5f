package installer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/snapx/internal/pkgextract"
	"github.com/oshokin/snapx/internal/platform"
	"github.com/oshokin/snapx/internal/process"
	"github.com/oshokin/snapx/internal/snapaware"
)

// fakeCapability scans real directories and records every other action.
type fakeCapability struct {
	mu sync.Mutex

	// hookExitCode is returned from InvokeProcess.
	hookExitCode int
	// shortcutErr is returned from CreateShortcuts.
	shortcutErr error

	invoked    [][]string
	terminated []string
	shortcuts  []*platform.Shortcut
}

func (f *fakeCapability) InvokeProcess(_ context.Context, command string, args []string, _ string) (*process.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invoked = append(f.invoked, append([]string{filepath.Base(command)}, args...))

	return &process.Result{ExitCode: f.hookExitCode, Output: "hook output"}, nil
}

func (f *fakeCapability) CreateShortcuts(_ context.Context, shortcut *platform.Shortcut) error {
	f.shortcuts = append(f.shortcuts, shortcut)

	return f.shortcutErr
}

func (f *fakeCapability) GetSpecialFolder(platform.SpecialFolder) (string, error) {
	return "", platform.ErrNotSupported
}

func (f *fakeCapability) GetInstalledSpecAwareBinaries(
	ctx context.Context,
	dir string,
	minVersion uint32,
) ([]snapaware.Binary, error) {
	return snapaware.Scan(ctx, dir, minVersion)
}

func (f *fakeCapability) TerminateProcesses(_ context.Context, names []string) error {
	f.terminated = append(f.terminated, names...)

	return nil
}

// recordingObserver keeps every notification.
type recordingObserver struct {
	extracted []string
	existing  []snapaware.Binary
}

func (r *recordingObserver) Extracted(event pkgextract.Event) {
	r.extracted = append(r.extracted, event.Path)
}

func (r *recordingObserver) ExistingBinaries(_ context.Context, binaries []snapaware.Binary) {
	r.existing = append(r.existing, binaries...)
}

func manifest(version string) string {
	return `<?xml version="1.0"?><package><metadata><id>demoapp</id><version>` +
		version + `</version></metadata></package>`
}

func writePackage(t *testing.T, version string) string {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)

	files := map[string][]byte{
		"demoapp.nuspec":             []byte(manifest(version)),
		"lib/net45/demoapp.exe":      append([]byte("MZ-not-really"), snapaware.Encode(1)...),
		"lib/net45/data/config.json": []byte("{}"),
	}

	for _, name := range []string{"demoapp.nuspec", "lib/net45/demoapp.exe", "lib/net45/data/config.json"} {
		w, err := writer.Create(name)
		require.NoError(t, err)

		_, err = w.Write(files[name])
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	path := filepath.Join(t.TempDir(), "demoapp_"+version+".nupkg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

func TestFirstInstall(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "demoapp")
	capability := &fakeCapability{}
	observer := &recordingObserver{}

	result, err := New(nil, capability, observer, Options{}).
		CleanInstallFromPackage(context.Background(), writePackage(t, "1.2.3"), root)
	require.NoError(t, err)

	require.Equal(t, "demoapp", result.AppID)
	require.Equal(t, filepath.Join(root, "app-1.2.3"), result.Directory)
	require.Empty(t, result.PreviousVersion)
	require.Empty(t, result.ExistingBinaries)
	require.Empty(t, result.FailedHooks)

	require.FileExists(t, filepath.Join(result.Directory, "demoapp.exe"))
	require.FileExists(t, filepath.Join(result.Directory, "data", "config.json"))
	require.NoDirExists(t, stagingDir(root, "1.2.3"))
	require.NoFileExists(t, filepath.Join(root, markerFilename))
	require.NoFileExists(t, filepath.Join(root, CurrentPointerFilename+".old"))

	current, err := CurrentVersion(root)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", current)

	require.ElementsMatch(t, []string{"demoapp.exe", "data/config.json"}, observer.extracted)
	require.Equal(t, [][]string{{"demoapp.exe", InstalledHookFlag, "1.2.3"}}, capability.invoked)
	require.Empty(t, capability.terminated)
}

func TestUpgradeShutsDownExistingBinaries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	oldDir := VersionDir(root, "1.0.0")
	require.NoError(t, os.MkdirAll(oldDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(oldDir, "demoapp.exe"), snapaware.Encode(1), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(oldDir, "legacy.exe"), bytes.Repeat([]byte("x"), 32), 0o600))
	require.NoError(t, writePointer(root, "app-1.0.0"))

	capability := &fakeCapability{}
	observer := &recordingObserver{}

	result, err := New(nil, capability, observer, Options{}).
		CleanInstallFromPackage(context.Background(), writePackage(t, "1.2.3"), root)
	require.NoError(t, err)

	require.Equal(t, "1.0.0", result.PreviousVersion)
	require.Len(t, observer.existing, 1)
	require.Equal(t, "demoapp.exe", observer.existing[0].Name)
	require.Equal(t, []string{"demoapp.exe"}, capability.terminated)
	require.DirExists(t, oldDir)

	current, err := CurrentVersion(root)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", current)
}

func TestReinstallReplacesVersionDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	stale := filepath.Join(VersionDir(root, "1.2.3"), "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	_, err := New(nil, &fakeCapability{}, nil, Options{}).
		CleanInstallFromPackage(context.Background(), writePackage(t, "1.2.3"), root)
	require.NoError(t, err)
	require.NoFileExists(t, stale)
	require.NoDirExists(t, replacedDir(root, "1.2.3"))
}

func TestReinstallOfActiveVersionKeepsItUntilSwap(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	installer := New(nil, &fakeCapability{}, nil, Options{})

	_, err := installer.CleanInstallFromPackage(context.Background(), writePackage(t, "1.2.3"), root)
	require.NoError(t, err)

	active := VersionDir(root, "1.2.3")
	result := &Result{Version: "1.2.3", Directory: active}

	// A staging directory that cannot be moved into place.
	err = installer.activate(root, stagingDir(root, "1.2.3"), result)
	require.Error(t, err)
	require.FileExists(t, filepath.Join(active, "demoapp.exe"))
	require.NoDirExists(t, replacedDir(root, "1.2.3"))

	current, err := CurrentVersion(root)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", current)

	_, err = installer.CleanInstallFromPackage(context.Background(), writePackage(t, "1.2.3"), root)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(active, "demoapp.exe"))
	require.NoDirExists(t, replacedDir(root, "1.2.3"))
}

func TestFailingHookDoesNotAbortInstall(t *testing.T) {
	t.Parallel()

	capability := &fakeCapability{hookExitCode: 1}

	result, err := New(nil, capability, nil, Options{}).
		CleanInstallFromPackage(context.Background(), writePackage(t, "2.0.0"), t.TempDir())
	require.NoError(t, err)
	require.Equal(t, []string{"demoapp.exe"}, result.FailedHooks)
}

func TestShortcutsOnUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	capability := &fakeCapability{shortcutErr: platform.ErrNotSupported}

	result, err := New(nil, capability, nil, Options{
		MainExecutable: "demoapp.exe",
		Shortcuts:      []platform.SpecialFolder{platform.FolderDesktop},
	}).CleanInstallFromPackage(context.Background(), writePackage(t, "1.2.3"), root)
	require.ErrorIs(t, err, platform.ErrNotSupported)
	require.NotNil(t, result)
	require.DirExists(t, result.Directory)

	require.Len(t, capability.shortcuts, 1)
	require.Equal(t, "demoapp", capability.shortcuts[0].Name)
	require.Equal(t, filepath.Join(result.Directory, "demoapp.exe"), capability.shortcuts[0].Target)
}

func TestCorruptPackageLeavesRootUntouched(t *testing.T) {
	t.Parallel()

	packagePath := filepath.Join(t.TempDir(), "broken.nupkg")
	require.NoError(t, os.WriteFile(packagePath, []byte("broken"), 0o600))

	root := filepath.Join(t.TempDir(), "demoapp")

	_, err := New(nil, &fakeCapability{}, nil, Options{}).
		CleanInstallFromPackage(context.Background(), packagePath, root)
	require.ErrorIs(t, err, pkgextract.ErrPackageCorrupt)
	require.NoDirExists(t, root)
}

func TestPrereleasePackageIsRejected(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "demoapp")

	_, err := New(nil, &fakeCapability{}, nil, Options{}).
		CleanInstallFromPackage(context.Background(), writePackage(t, "1.0.0-beta"), root)
	require.ErrorIs(t, err, errPackageVersion)
	require.NoDirExists(t, root)
}

func TestConcurrentInstallIsRefused(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, markerFilename), nil, 0o600))

	_, err := New(nil, &fakeCapability{}, nil, Options{}).
		CleanInstallFromPackage(context.Background(), writePackage(t, "1.2.3"), root)
	require.ErrorIs(t, err, ErrInstallInProgress)
	require.FileExists(t, filepath.Join(root, markerFilename))
}

func TestCanceledInstallDiscardsStaging(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil, &fakeCapability{}, nil, Options{}).
		CleanInstallFromPackage(ctx, writePackage(t, "1.2.3"), root)
	require.ErrorIs(t, err, context.Canceled)
	require.NoDirExists(t, stagingDir(root, "1.2.3"))
	require.NoDirExists(t, VersionDir(root, "1.2.3"))
}

func TestCurrentVersionWithoutPointer(t *testing.T) {
	t.Parallel()

	version, err := CurrentVersion(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, version)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, CurrentPointerFilename), []byte("app-3.1.4\n"), 0o600))

	version, err = CurrentVersion(root)
	require.NoError(t, err)
	require.Equal(t, "3.1.4", strings.TrimSpace(version))
}
