package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	domain "github.com/oshokin/snapx/internal/domain/release"
	"github.com/oshokin/snapx/internal/domain/spec"
	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/mutex"
	"github.com/oshokin/snapx/internal/repository/releases"
	"github.com/oshokin/snapx/internal/service/common"
)

// packageExt is the extension of package files gc may delete.
const packageExt = ".nupkg"

var (
	// ErrNoRelease is returned when no release matches the request.
	ErrNoRelease = errors.New("no matching release")
	// ErrLastChannel is returned when promoting from the final channel.
	ErrLastChannel = errors.New("channel has no successor")
)

// GCResult lists what garbage collection removed.
type GCResult struct {
	// Releases are the removed release file names.
	Releases []string
	// Files are deleted package files that were not in the index.
	Files []string
}

// Service edits the release index of an app's home feed folder.
type Service struct {
	// log is the service logger.
	log *zap.SugaredLogger
	// locker talks to the lock service.
	locker mutex.Locker
	// lockOpts are the mutex timings.
	lockOpts mutex.Options
}

// NewService creates a release service.
func NewService(log *zap.SugaredLogger, locker mutex.Locker, lockOpts mutex.Options) *Service {
	log = logger.OrNop(log)
	lockOpts.Logger = log

	return &Service{
		log:      log,
		locker:   locker,
		lockOpts: lockOpts,
	}
}

// List returns the app's releases for every runtime, newest first.
func (s *Service) List(ctx context.Context, app *spec.SnapApp) ([]*domain.Release, error) {
	home, err := common.HomeFolder(app)
	if err != nil {
		return nil, err
	}

	index, err := releases.NewFileRepository(home).LoadOrEmpty(ctx)
	if err != nil {
		return nil, err
	}

	return index.For(app.ID, ""), nil
}

// Promote publishes the newest release in channel to the following channel.
// The package is copied when the next channel uses a different feed folder.
func (s *Service) Promote(ctx context.Context, app *spec.SnapApp, channel string) (*domain.Release, error) {
	from, _, ok := app.FindChannel(channel)
	if !ok {
		return nil, fmt.Errorf("app %s has no channel %q: %w", app.ID, channel, ErrNoRelease)
	}

	next, ok := app.NextChannel(from.Name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", from.Name, ErrLastChannel)
	}

	var promoted *domain.Release

	err := s.edit(ctx, app, func(ctx context.Context, home string, index *domain.Index) error {
		latest, ok := index.Latest(app.ID, app.Target.Rid, from.Name)
		if !ok {
			return fmt.Errorf("%s in channel %s: %w", app.ID, from.Name, ErrNoRelease)
		}

		if latest.HasChannel(next.Name) {
			s.log.Infow("Release is already promoted", "version", latest.Version, "channel", next.Name)

			promoted = latest.Clone()

			return nil
		}

		if err := s.publish(ctx, app, home, next.Name, latest.Filename); err != nil {
			return err
		}

		latest.Channels = append(latest.Channels, next.Name)
		promoted = latest.Clone()

		s.log.Infow("Release promoted", "version", latest.Version, "from", from.Name, "to", next.Name)

		return nil
	})

	return promoted, err
}

// Demote removes the last channel of version. A release left without
// channels is removed from the index; its package is deleted by GC.
// The returned release is nil when it was removed.
func (s *Service) Demote(ctx context.Context, app *spec.SnapApp, version string) (*domain.Release, error) {
	var demoted *domain.Release

	err := s.edit(ctx, app, func(_ context.Context, _ string, index *domain.Index) error {
		current, ok := index.Find(app.ID, app.Target.Rid, version)
		if !ok {
			return fmt.Errorf("%s %s (%s): %w", app.ID, version, app.Target.Rid, ErrNoRelease)
		}

		if n := len(current.Channels); n > 0 {
			s.log.Infow("Release demoted", "version", version, "channel", current.Channels[n-1])

			current.Channels = current.Channels[:n-1]
		}

		if len(current.Channels) == 0 {
			index.Remove(current.Filename)

			return nil
		}

		demoted = current.Clone()

		return nil
	})

	return demoted, err
}

// GC keeps, for every channel, the newest release published to it and
// removes every other release of the app and rid. Package files in the home
// folder that no release references are deleted as well.
func (s *Service) GC(ctx context.Context, app *spec.SnapApp) (*GCResult, error) {
	result := new(GCResult)

	err := s.edit(ctx, app, func(_ context.Context, home string, index *domain.Index) error {
		keep := make(map[string]struct{})

		for _, channel := range app.Channels {
			if latest, ok := index.Latest(app.ID, app.Target.Rid, channel.Name); ok {
				keep[latest.Filename] = struct{}{}
			}
		}

		for _, r := range index.For(app.ID, app.Target.Rid) {
			if _, ok := keep[r.Filename]; ok {
				continue
			}

			index.Remove(r.Filename)
			result.Releases = append(result.Releases, r.Filename)
		}

		referenced := make(map[string]struct{}, len(index.Releases))
		for _, r := range index.Releases {
			referenced[strings.ToLower(r.Filename)] = struct{}{}
		}

		entries, err := os.ReadDir(home)
		if err != nil {
			return fmt.Errorf("read feed folder: %w", err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), packageExt) || strings.HasPrefix(name, ".") {
				continue
			}

			if _, ok := referenced[strings.ToLower(name)]; ok {
				continue
			}

			if err = os.Remove(filepath.Join(home, name)); err != nil {
				return fmt.Errorf("delete %s: %w", name, err)
			}

			if !slices.Contains(result.Releases, name) {
				result.Files = append(result.Files, name)
			}

			s.log.Infow("Deleted package", "file", name)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// edit loads the index under the release lock, applies fn and saves the result.
func (s *Service) edit(
	ctx context.Context,
	app *spec.SnapApp,
	fn func(ctx context.Context, home string, index *domain.Index) error,
) error {
	home, err := common.HomeFolder(app)
	if err != nil {
		return err
	}

	return common.WithReleaseLock(ctx, s.locker, s.lockOpts, app, home, func(ctx context.Context) error {
		repo := releases.NewFileRepository(home)

		index, err := repo.LoadOrEmpty(ctx)
		if err != nil {
			return err
		}

		if err = fn(ctx, home, index); err != nil {
			return err
		}

		return repo.Save(ctx, index)
	})
}

// publish copies filename from home into the feed folder of channel when it differs.
func (s *Service) publish(ctx context.Context, app *spec.SnapApp, home, channel, filename string) error {
	target, err := common.FeedFolder(app, channel)
	if err != nil {
		return err
	}

	if filepath.Clean(target) == filepath.Clean(home) {
		return nil
	}

	if err = os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create feed folder: %w", err)
	}

	if err = copyFile(ctx, filepath.Join(home, filename), filepath.Join(target, filename)); err != nil {
		return fmt.Errorf("publish %s to %s: %w", filename, channel, err)
	}

	s.log.Infow("Published package", "file", filename, "feed", target)

	return nil
}

func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.CreateTemp(filepath.Dir(dst), ".publish-*")
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())

		return err
	}

	if err = out.Close(); err != nil {
		_ = os.Remove(out.Name())

		return err
	}

	return os.Rename(out.Name(), dst)
}
