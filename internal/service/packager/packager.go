package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	domain "github.com/oshokin/snapx/internal/domain/release"
	"github.com/oshokin/snapx/internal/domain/spec"
	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/mutex"
	"github.com/oshokin/snapx/internal/pkgextract"
	"github.com/oshokin/snapx/internal/repository/releases"
	"github.com/oshokin/snapx/internal/service/checksum"
	"github.com/oshokin/snapx/internal/service/common"
)

var (
	// ErrReleaseExists is returned when the version was already packed for the rid.
	ErrReleaseExists = errors.New("release already exists")
	// errEmptyInput is returned when the payload directory has nothing to pack.
	errEmptyInput = errors.New("input directory is empty")
)

// Packager packs releases under the release lock.
type Packager struct {
	// log is the packager logger.
	log *zap.SugaredLogger
	// locker talks to the lock service.
	locker mutex.Locker
	// lockOpts are the mutex timings.
	lockOpts mutex.Options
	// now is the clock.
	now func() time.Time
}

// New creates a packager.
func New(log *zap.SugaredLogger, locker mutex.Locker, lockOpts mutex.Options) *Packager {
	log = logger.OrNop(log)
	lockOpts.Logger = log

	return &Packager{
		log:      log,
		locker:   locker,
		lockOpts: lockOpts,
		now:      time.Now,
	}
}

// Pack builds the package of app from inputDir into the app's home feed folder.
func (p *Packager) Pack(ctx context.Context, app *spec.SnapApp, inputDir, description string) (*domain.Release, error) {
	if err := spec.Validate(app); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", inputDir, errEmptyInput)
	}

	feedDir, err := common.HomeFolder(app)
	if err != nil {
		return nil, err
	}

	var result *domain.Release

	err = common.WithReleaseLock(ctx, p.locker, p.lockOpts, app, feedDir, func(ctx context.Context) error {
		var packErr error

		result, packErr = p.pack(ctx, app, feedDir, inputDir, description)

		return packErr
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Packager) pack(
	ctx context.Context,
	app *spec.SnapApp,
	feedDir, inputDir, description string,
) (*domain.Release, error) {
	repo := releases.NewFileRepository(feedDir)

	index, err := repo.LoadOrEmpty(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := index.Find(app.ID, app.Target.Rid, app.Version); ok {
		return nil, fmt.Errorf("%s %s (%s): %w", app.ID, app.Version, app.Target.Rid, ErrReleaseExists)
	}

	if err = os.MkdirAll(feedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create feed folder: %w", err)
	}

	filename := app.PackageFilename()
	target := filepath.Join(feedDir, filename)

	p.log.Infow("Packing release", "app", app.ID, "version", app.Version, "rid", app.Target.Rid, "package", target)

	size, digest, err := p.writePackage(ctx, app, feedDir, target, inputDir, description)
	if err != nil {
		return nil, err
	}

	release := &domain.Release{
		AppID:     app.ID,
		Version:   app.Version,
		Rid:       app.Target.Rid,
		Channels:  []string{app.Channels[0].Name},
		Filename:  filename,
		Sha512:    checksum.Base64(digest),
		Size:      size,
		CreatedAt: p.now().UTC(),
	}

	index.Releases = append(index.Releases, release)

	if err = repo.Save(ctx, index); err != nil {
		_ = os.Remove(target)

		return nil, err
	}

	return release.Clone(), nil
}

// writePackage writes the archive to a temporary file in feedDir and renames it to target.
func (p *Packager) writePackage(
	ctx context.Context,
	app *spec.SnapApp,
	feedDir, target, inputDir, description string,
) (int64, []byte, error) {
	temporary, err := os.CreateTemp(feedDir, ".pack-*.nupkg")
	if err != nil {
		return 0, nil, fmt.Errorf("create package: %w", err)
	}

	cleanup := func() {
		_ = temporary.Close()
		_ = os.Remove(temporary.Name())
	}

	hasher := checksum.DefaultHash.New()
	counter := &countingWriter{}
	out := io.MultiWriter(temporary, hasher, counter)

	manifest := pkgextract.NewManifest(app.ID, app.Version, description)
	if err = writeArchive(ctx, out, manifest, app.Target.Framework, inputDir); err != nil {
		cleanup()

		return 0, nil, err
	}

	if err = temporary.Close(); err != nil {
		cleanup()

		return 0, nil, fmt.Errorf("close package: %w", err)
	}

	if err = os.Rename(temporary.Name(), target); err != nil {
		cleanup()

		return 0, nil, fmt.Errorf("move package into feed: %w", err)
	}

	return counter.n, hasher.Sum(nil), nil
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))

	return len(p), nil
}
