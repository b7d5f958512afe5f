//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/oshokin/snapx/internal/config"
	"github.com/oshokin/snapx/internal/domain/spec"
	"github.com/oshokin/snapx/internal/lockclient"
	"github.com/oshokin/snapx/internal/mutex"
	"github.com/oshokin/snapx/internal/repository/specfile"
)

var (
	// ErrNotFolderFeed is returned when a release verb targets a remote feed.
	ErrNotFolderFeed = errors.New("only folder feeds can be published to")
	// errUnknownChannel is returned for channels the app does not define.
	errUnknownChannel = errors.New("unknown channel")
	// errUnknownFeed is returned when a channel refers to a missing feed.
	errUnknownFeed = errors.New("unknown feed")
)

// LoadSettings loads settings from path, falling back to defaults when the
// file does not exist, and validates them.
func LoadSettings(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadApp reads the spec file at specPath and resolves appName for rid.
func LoadApp(specPath, appName, rid string) (*spec.SnapApp, error) {
	if specPath == "" {
		specPath = specfile.DefaultFilename
	}

	file, err := specfile.Load(specPath)
	if err != nil {
		return nil, err
	}

	return file.BuildApp(appName, rid)
}

// FeedFolder returns the local directory of the feed used by channel.
func FeedFolder(app *spec.SnapApp, channel string) (string, error) {
	ch, _, ok := app.FindChannel(channel)
	if !ok {
		return "", fmt.Errorf("%w %q for app %s", errUnknownChannel, channel, app.ID)
	}

	feed, ok := app.FindFeed(ch.Feed)
	if !ok {
		return "", fmt.Errorf("%w %q for channel %s", errUnknownFeed, ch.Feed, ch.Name)
	}

	if !feed.IsFolder() {
		return "", fmt.Errorf("feed %s: %w", feed.Name, ErrNotFolderFeed)
	}

	return specfile.FolderPath(feed.SourceURI)
}

// HomeFolder returns the feed folder of the app's first channel, which holds
// the release index.
func HomeFolder(app *spec.SnapApp) (string, error) {
	if len(app.Channels) == 0 {
		return "", fmt.Errorf("app %s has no channels: %w", app.ID, errUnknownChannel)
	}

	return FeedFolder(app, app.Channels[0].Name)
}

// FeedLockName returns the lock name guarding the release index and packages
// in the feed folder home. Apps sharing a folder share the name.
func FeedLockName(home string) string {
	if abs, err := filepath.Abs(home); err == nil {
		home = abs
	}

	return "feed:" + filepath.Clean(home)
}

// WithReleaseLock runs fn while holding the lock of app and then the lock of
// its home feed folder. The order is fixed so apps sharing a feed never
// deadlock.
func WithReleaseLock(
	ctx context.Context,
	locker mutex.Locker,
	opts mutex.Options,
	app *spec.SnapApp,
	home string,
	fn func(ctx context.Context) error,
) error {
	return mutex.WithLock(ctx, locker, app.ID, opts, func(ctx context.Context) error {
		return mutex.WithLock(ctx, locker, FeedLockName(home), opts, fn)
	})
}

// LockSession is a connected lock client with mutex options from settings.
type LockSession struct {
	// Client talks to the lock service.
	Client lockclient.Client
	// Options are the mutex timings.
	Options mutex.Options
}

// OpenLockSession connects to the configured lock service.
func OpenLockSession(cfg *config.Config, log *zap.SugaredLogger) (*LockSession, error) {
	client, err := lockclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to lock service: %w", err)
	}

	return &LockSession{
		Client:  client,
		Options: mutex.OptionsFromConfig(cfg, log),
	}, nil
}

// Close releases the client.
func (s *LockSession) Close() error {
	return s.Client.Close()
}

// WithLock runs fn while holding the lock name.
func (s *LockSession) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return mutex.WithLock(ctx, s.Client, name, s.Options, fn)
}
