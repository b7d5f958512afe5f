package installer

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"go.uber.org/zap"

	"github.com/oshokin/snapx/internal/config"
	"github.com/oshokin/snapx/internal/domain/spec"
	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/pkgextract"
	"github.com/oshokin/snapx/internal/platform"
	"github.com/oshokin/snapx/internal/snapaware"

	// Ensure SHA512 is available for pointer verification.
	_ "crypto/sha512"
)

const (
	// ProtocolVersion is the install protocol this engine speaks.
	ProtocolVersion uint32 = 1
	// InstalledHookFlag is passed to spec-aware binaries after activation.
	InstalledHookFlag = "--snapx-installed"
	// markerLifetime is the age after which an install marker is treated as stale.
	markerLifetime = 10 * time.Minute
)

var (
	// ErrInstallInProgress is returned when another install holds the marker.
	ErrInstallInProgress = errors.New("another install is in progress")
	// errPackageVersion is returned for packages whose manifest version is unusable.
	errPackageVersion = errors.New("invalid package version")
)

// Options tunes an install.
type Options struct {
	// Framework selects the payload root; empty detects it.
	Framework string
	// MinProtocolVersion filters spec-aware binaries.
	MinProtocolVersion uint32
	// HookTimeout bounds each post-install hook.
	HookTimeout time.Duration
	// MainExecutable is the payload-relative path shortcuts point to.
	MainExecutable string
	// ShortcutName defaults to the package id.
	ShortcutName string
	// Shortcuts lists shortcut locations; empty creates none.
	Shortcuts []platform.SpecialFolder
}

// Result describes a completed install.
type Result struct {
	// AppID is the package id.
	AppID string
	// Version is the installed version.
	Version string
	// Directory is the version directory.
	Directory string
	// PreviousVersion is the version active before the install, if any.
	PreviousVersion string
	// ExistingBinaries were found in the previous install.
	ExistingBinaries []snapaware.Binary
	// FailedHooks lists binaries whose post-install hook failed.
	FailedHooks []string
}

// Installer runs clean installs. Each value serves one command invocation.
type Installer struct {
	// log is the installer logger.
	log *zap.SugaredLogger
	// capability performs OS-specific actions.
	capability platform.Capability
	// observer receives progress.
	observer Observer
	// opts holds install settings.
	opts Options
}

// New creates an installer. A nil observer discards notifications.
func New(log *zap.SugaredLogger, capability platform.Capability, observer Observer, opts Options) *Installer {
	if observer == nil {
		observer = nopObserver{}
	}

	if opts.MinProtocolVersion == 0 {
		opts.MinProtocolVersion = ProtocolVersion
	}

	if opts.HookTimeout <= 0 {
		opts.HookTimeout = config.DefaultHookTimeout
	}

	return &Installer{
		log:        logger.OrNop(log),
		capability: capability,
		observer:   observer,
		opts:       opts,
	}
}

// CleanInstallFromPackage installs the package at packagePath under rootAppDir.
func (i *Installer) CleanInstallFromPackage(ctx context.Context, packagePath, rootAppDir string) (*Result, error) {
	root, err := filepath.Abs(rootAppDir)
	if err != nil {
		return nil, err
	}

	extractor, err := pkgextract.Open(packagePath, i.log, pkgextract.WithFramework(i.opts.Framework))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = extractor.Close()
	}()

	manifest, err := extractor.Manifest()
	if err != nil {
		return nil, err
	}

	version := manifest.Metadata.Version
	if err = spec.ValidateVersion(version); err != nil {
		return nil, fmt.Errorf("%w %q: %w", errPackageVersion, version, err)
	}

	result := &Result{
		AppID:     manifest.Metadata.ID,
		Version:   version,
		Directory: VersionDir(root, version),
	}

	log := i.log.With("app", result.AppID, "version", version)

	if err = os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create install root: %w", err)
	}

	release, err := acquireMarker(root, log)
	if err != nil {
		return nil, err
	}

	defer release()

	if result.PreviousVersion, err = CurrentVersion(root); err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}

	staging := stagingDir(root, version)
	if err = os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("remove stale staging directory: %w", err)
	}

	log.Infow("Extracting package", "staging", staging)

	err = extractor.ExtractStream(ctx, staging, func(event pkgextract.Event) error {
		i.observer.Extracted(event)

		return nil
	})
	if err != nil {
		i.discard(staging)

		return nil, err
	}

	if result.ExistingBinaries, err = i.shutdownExisting(ctx, root); err != nil {
		i.discard(staging)

		return nil, err
	}

	if err = i.activate(root, staging, result); err != nil {
		return nil, err
	}

	log.Infow("Version activated", "directory", result.Directory, "previous", result.PreviousVersion)

	result.FailedHooks = i.runHooks(ctx, result)

	if err = i.createShortcuts(ctx, result); err != nil {
		return result, err
	}

	return result, nil
}

// shutdownExisting reports spec-aware binaries of installed versions and
// terminates their running processes.
func (i *Installer) shutdownExisting(ctx context.Context, root string) ([]snapaware.Binary, error) {
	dirs, err := versionDirs(root)
	if err != nil {
		return nil, fmt.Errorf("list installed versions: %w", err)
	}

	var found []snapaware.Binary

	for _, dir := range dirs {
		binaries, err := i.capability.GetInstalledSpecAwareBinaries(ctx, dir, i.opts.MinProtocolVersion)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}

		found = append(found, binaries...)
	}

	if len(found) == 0 {
		return nil, nil
	}

	i.observer.ExistingBinaries(ctx, found)

	names := make([]string, 0, len(found))
	seen := make(map[string]struct{}, len(found))

	for _, binary := range found {
		if _, ok := seen[binary.Name]; ok {
			continue
		}

		seen[binary.Name] = struct{}{}
		names = append(names, binary.Name)
	}

	sort.Strings(names)

	if err = i.capability.TerminateProcesses(ctx, names); err != nil {
		return found, fmt.Errorf("stop running binaries: %w", err)
	}

	return found, nil
}

// activate moves staging into place and switches the pointer. An existing
// copy of the same version is renamed aside first and restored if the swap
// fails, so the directory the pointer names is never removed before its
// replacement is in place.
func (i *Installer) activate(root, staging string, result *Result) error {
	replaced := replacedDir(root, result.Version)
	if err := os.RemoveAll(replaced); err != nil {
		i.discard(staging)

		return fmt.Errorf("remove stale copy of %s: %w", result.Version, err)
	}

	hadPrevious := false

	if _, err := os.Stat(result.Directory); err == nil {
		if err = os.Rename(result.Directory, replaced); err != nil {
			i.discard(staging)

			return fmt.Errorf("move previous copy of %s aside: %w", result.Version, err)
		}

		hadPrevious = true
	}

	if err := os.Rename(staging, result.Directory); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(replaced, result.Directory); restoreErr != nil {
				i.log.Errorw("Failed to restore previous copy", "path", replaced, "error", restoreErr)
			}
		}

		i.discard(staging)

		return fmt.Errorf("move staging directory into place: %w", err)
	}

	if err := writePointer(root, filepath.Base(result.Directory)); err != nil {
		return err
	}

	if hadPrevious {
		i.discard(replaced)
	}

	return nil
}

// writePointer replaces the pointer file atomically.
func writePointer(root, dirName string) error {
	pointer := filepath.Join(root, CurrentPointerFilename)

	if _, err := os.Stat(pointer); os.IsNotExist(err) {
		file, createErr := os.OpenFile(pointer, os.O_CREATE|os.O_WRONLY, pointerFileMode)
		if createErr != nil {
			return fmt.Errorf("create pointer: %w", createErr)
		}

		if createErr = file.Close(); createErr != nil {
			return fmt.Errorf("create pointer: %w", createErr)
		}
	}

	contents := []byte(dirName + "\n")

	hasher := crypto.SHA512.New()
	_, _ = hasher.Write(contents)

	err := goupdate.Apply(bytes.NewReader(contents), goupdate.Options{
		TargetPath: pointer,
		TargetMode: pointerFileMode,
		Checksum:   hasher.Sum(nil),
		Hash:       crypto.SHA512,
	})
	if err != nil {
		return fmt.Errorf("switch current version: %w", err)
	}

	if _, err = os.Stat(pointer + ".old"); err == nil {
		_ = os.Remove(pointer + ".old")
	}

	return nil
}

// runHooks notifies installed spec-aware binaries. Failures are logged only.
func (i *Installer) runHooks(ctx context.Context, result *Result) []string {
	binaries, err := i.capability.GetInstalledSpecAwareBinaries(ctx, result.Directory, i.opts.MinProtocolVersion)
	if err != nil {
		i.log.Warnw("Failed to scan installed version for hooks", "error", err)

		return nil
	}

	var failed []string

	for _, binary := range binaries {
		hookCtx, cancel := context.WithTimeout(ctx, i.opts.HookTimeout)
		hookResult, err := i.capability.InvokeProcess(hookCtx,
			binary.Path, []string{InstalledHookFlag, result.Version}, result.Directory)

		cancel()

		switch {
		case err != nil:
			failed = append(failed, binary.Name)

			i.log.Warnw("Install hook failed", "binary", binary.Path, "error", err)
		case hookResult.ExitCode != 0:
			failed = append(failed, binary.Name)

			i.log.Warnw("Install hook exited with error",
				"binary", binary.Path, "exit_code", hookResult.ExitCode, "output", hookResult.Output)
		default:
			i.log.Infow("Install hook completed", "binary", binary.Path)
		}
	}

	return failed
}

func (i *Installer) createShortcuts(ctx context.Context, result *Result) error {
	if len(i.opts.Shortcuts) == 0 || i.opts.MainExecutable == "" {
		return nil
	}

	name := i.opts.ShortcutName
	if name == "" {
		name = result.AppID
	}

	err := i.capability.CreateShortcuts(ctx, &platform.Shortcut{
		Name:       name,
		Target:     filepath.Join(result.Directory, filepath.FromSlash(i.opts.MainExecutable)),
		WorkingDir: result.Directory,
		Locations:  i.opts.Shortcuts,
	})
	if err != nil {
		return fmt.Errorf("create shortcuts: %w", err)
	}

	return nil
}

func (i *Installer) discard(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		i.log.Warnw("Failed to remove directory", "path", dir, "error", err)
	}
}

// acquireMarker creates the install marker, clearing a stale one.
func acquireMarker(root string, log *zap.SugaredLogger) (func(), error) {
	marker := filepath.Join(root, markerFilename)

	if info, err := os.Stat(marker); err == nil {
		if time.Since(info.ModTime()) <= markerLifetime {
			return nil, ErrInstallInProgress
		}

		log.Infow("Removing stale install marker", "path", marker)

		if err = os.Remove(marker); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale install marker: %w", err)
		}
	}

	file, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, pointerFileMode)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrInstallInProgress
		}

		return nil, fmt.Errorf("create install marker: %w", err)
	}

	_ = file.Close()

	return func() {
		if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
			log.Warnw("Failed to remove install marker", "path", marker, "error", err)
		}
	}, nil
}
