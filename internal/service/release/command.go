package release

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oshokin/snapx/internal/domain/spec"
	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/mutex"
	"github.com/oshokin/snapx/internal/service/common"
)

// Options contains inputs shared by the release verbs.
type Options struct {
	// ConfigPath is the settings file (defaults to snapx-settings.yaml).
	ConfigPath string
	// SpecPath is the spec file (defaults to snapx.yaml).
	SpecPath string
	// AppName selects the app in the spec file.
	AppName string
	// Rid selects the runtime configuration.
	Rid string
	// Channel is the source channel of promote.
	Channel string
	// Version is the release demote targets.
	Version string
	// Output receives the list table (defaults to stdout).
	Output io.Writer
}

// RunPromote publishes the newest release of opts.Channel to the next channel.
func RunPromote(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "promote")

	return withService(ctx, opts, func(app *spec.SnapApp, service *Service) error {
		release, err := service.Promote(ctx, app, opts.Channel)
		if err != nil {
			return fmt.Errorf("promote failed: %w", err)
		}

		logger.InfoKV(ctx, "Release channels updated",
			"version", release.Version,
			"channels", strings.Join(release.Channels, ","))

		return nil
	})
}

// RunDemote removes the last channel of opts.Version.
func RunDemote(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "demote")

	return withService(ctx, opts, func(app *spec.SnapApp, service *Service) error {
		release, err := service.Demote(ctx, app, opts.Version)
		if err != nil {
			return fmt.Errorf("demote failed: %w", err)
		}

		if release == nil {
			logger.InfoKV(ctx, "Release removed from index", "version", opts.Version)

			return nil
		}

		logger.InfoKV(ctx, "Release channels updated",
			"version", release.Version,
			"channels", strings.Join(release.Channels, ","))

		return nil
	})
}

// RunGC deletes superseded releases from the home feed folder.
func RunGC(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "gc")

	return withService(ctx, opts, func(app *spec.SnapApp, service *Service) error {
		result, err := service.GC(ctx, app)
		if err != nil {
			return fmt.Errorf("gc failed: %w", err)
		}

		logger.InfoKV(ctx, "Garbage collection finished",
			"releases", len(result.Releases),
			"orphans", len(result.Files))

		return nil
	})
}

// RunList prints the app's releases as a table.
func RunList(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "list")

	app, err := common.LoadApp(opts.SpecPath, opts.AppName, opts.Rid)
	if err != nil {
		return err
	}

	list, err := NewService(logger.FromContext(ctx), nil, mutex.Options{}).List(ctx, app)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tRID\tCHANNELS\tSIZE\tCREATED")

	for _, r := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			r.Version, r.Rid, strings.Join(r.Channels, ","), r.Size, r.CreatedAt.UTC().Format(time.RFC3339))
	}

	return w.Flush()
}

func withService(ctx context.Context, opts *Options, fn func(app *spec.SnapApp, service *Service) error) error {
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

	return fn(app, NewService(log, session.Client, session.Options))
}
