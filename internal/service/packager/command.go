package packager

import (
	"context"
	"fmt"

	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/service/common"
)

// Options contains inputs for the pack verb.
type Options struct {
	// ConfigPath is the settings file (defaults to snapx-settings.yaml).
	ConfigPath string
	// SpecPath is the spec file (defaults to snapx.yaml).
	SpecPath string
	// AppName selects the app in the spec file.
	AppName string
	// Rid selects the runtime configuration.
	Rid string
	// InputDir holds the payload to pack.
	InputDir string
	// Description is written to the package manifest.
	Description string
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pack")

	app, err := common.LoadApp(opts.SpecPath, opts.AppName, opts.Rid)
	if err != nil {
		return err
	}

	cfg, err := common.LoadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)

	session, err := common.OpenLockSession(cfg, log)
	if err != nil {
		return err
	}

	// Best-effort cleanup.
	defer func() {
		_ = session.Close()
	}()

	release, err := New(log, session.Client, session.Options).Pack(ctx, app, opts.InputDir, opts.Description)
	if err != nil {
		return fmt.Errorf("pack failed: %w", err)
	}

	logger.InfoKV(ctx, "Release packed",
		"app", release.AppID,
		"version", release.Version,
		"rid", release.Rid,
		"channel", release.Channels[0],
		"package", release.Filename,
		"sha512", release.Sha512)

	return nil
}
