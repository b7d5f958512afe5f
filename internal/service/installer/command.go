package installer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/snapx/internal/config"
	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/pkgextract"
	"github.com/oshokin/snapx/internal/platform"
	"github.com/oshokin/snapx/internal/process"
	"github.com/oshokin/snapx/internal/service/common"
	"github.com/oshokin/snapx/internal/snapaware"
)

var (
	// errPackageRequired is returned when no package path is given.
	errPackageRequired = errors.New("package path is required")
	// errUnknownShortcut is returned for unrecognized shortcut locations.
	errUnknownShortcut = errors.New("unknown shortcut location")
)

// CommandOptions contains inputs for the install verb.
type CommandOptions struct {
	// ConfigPath is the settings file (defaults to snapx-settings.yaml).
	ConfigPath string
	// PackagePath is the package to install.
	PackagePath string
	// RootDir is the application root directory.
	RootDir string
	// Framework selects the payload root; empty detects it.
	Framework string
	// MainExecutable is the payload-relative path shortcuts point to.
	MainExecutable string
	// ShortcutName overrides the shortcut display name.
	ShortcutName string
	// Shortcuts lists locations by name: desktop, startmenu.
	Shortcuts []string
	// LockName, when set, holds that lock on the lock service for the whole install.
	LockName string
}

// Run installs a package with the host platform capability.
func Run(ctx context.Context, opts *CommandOptions) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "install")

	if opts.PackagePath == "" {
		return errPackageRequired
	}

	shortcuts, err := ParseShortcuts(opts.Shortcuts)
	if err != nil {
		return err
	}

	cfg, err := common.LoadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	runner := process.NewRunner(log, process.WithPollInterval(cfg.ProcessPollInterval))

	installer := New(log, platform.Current(log, runner), &logObserver{ctx: ctx}, Options{
		Framework:      opts.Framework,
		HookTimeout:    cfg.HookTimeout,
		MainExecutable: opts.MainExecutable,
		ShortcutName:   opts.ShortcutName,
		Shortcuts:      shortcuts,
	})

	var result *Result

	install := func(ctx context.Context) error {
		var installErr error

		result, installErr = installer.CleanInstallFromPackage(ctx, opts.PackagePath, opts.RootDir)

		return installErr
	}

	if opts.LockName == "" {
		err = install(ctx)
	} else {
		err = withLock(ctx, cfg, opts.LockName, install)
	}

	if result != nil {
		logger.InfoKV(ctx, "Package installed",
			"app", result.AppID,
			"version", result.Version,
			"previous", result.PreviousVersion,
			"directory", result.Directory,
			"failed_hooks", len(result.FailedHooks))
	}

	if err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	return nil
}

func withLock(ctx context.Context, cfg *config.Config, name string, fn func(ctx context.Context) error) error {
	session, err := common.OpenLockSession(cfg, logger.FromContext(ctx))
	if err != nil {
		return err
	}

	// Best-effort cleanup.
	defer func() {
		_ = session.Close()
	}()

	return session.WithLock(ctx, name, fn)
}

// ParseShortcuts converts location names to special folders.
func ParseShortcuts(names []string) ([]platform.SpecialFolder, error) {
	folders := make([]platform.SpecialFolder, 0, len(names))

	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "desktop":
			folders = append(folders, platform.FolderDesktop)
		case "startmenu", "start-menu":
			folders = append(folders, platform.FolderStartMenu)
		default:
			return nil, fmt.Errorf("%w: %q", errUnknownShortcut, name)
		}
	}

	return folders, nil
}

// logObserver writes install progress to the context logger.
type logObserver struct {
	ctx context.Context //nolint:containedctx // Observer callbacks have no context of their own.
}

func (o *logObserver) Extracted(event pkgextract.Event) {
	if event.Dir {
		return
	}

	logger.DebugKV(o.ctx, "Extracted", "path", event.Path, "size", event.Size)
}

func (o *logObserver) ExistingBinaries(ctx context.Context, binaries []snapaware.Binary) {
	for _, b := range binaries {
		logger.InfoKV(ctx, "Stopping installed binary", "name", b.Name, "protocol", b.ProtocolVersion)
	}
}
