package pkgextract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/oshokin/snapx/internal/logger"
)

const (
	// libDir is the top-level payload directory.
	libDir = "lib/"
	// legacyRoot is stripped from output paths when still present after the framework root.
	legacyRoot = "lib/net45/"
	// dirPerm is used for created directories.
	dirPerm os.FileMode = 0o755
	// defaultFilePerm is used when an entry carries no permission bits.
	defaultFilePerm os.FileMode = 0o644
)

// Event reports one extracted entry.
type Event struct {
	// Path is the slash-separated path relative to the destination.
	Path string
	// Dir is true for created directories.
	Dir bool
	// Size is the number of bytes written for files.
	Size int64
}

// Extractor owns an open package archive. Close must be called when done.
type Extractor struct {
	// path is the archive location.
	path string
	// archive is the open zip reader.
	archive *zip.ReadCloser
	// framework overrides payload root detection.
	framework string
	// log is the extractor logger.
	log *zap.SugaredLogger

	// closeOnce guards archive.Close.
	closeOnce sync.Once
	// closeErr is the result of closing the archive.
	closeErr error
	// closed is set after Close.
	closed bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFramework selects lib/<framework>/ as the payload root.
func WithFramework(framework string) Option {
	return func(e *Extractor) {
		e.framework = strings.Trim(framework, "/")
	}
}

// Open opens the package at packagePath.
func Open(packagePath string, log *zap.SugaredLogger, opts ...Option) (*Extractor, error) {
	archive, err := zip.OpenReader(packagePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("open package %s: %w", packagePath, err)
		}

		return nil, corrupt("open %s: %v", packagePath, err)
	}

	e := &Extractor{
		path:    packagePath,
		archive: archive,
		log:     logger.OrNop(log).With("package", filepath.Base(packagePath)),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Close releases the archive. It is safe to call more than once.
func (e *Extractor) Close() error {
	e.closeOnce.Do(func() {
		e.closed = true
		e.closeErr = e.archive.Close()
	})

	return e.closeErr
}

// Manifest reads the nuspec manifest at the archive root.
func (e *Extractor) Manifest() (*Manifest, error) {
	if e.closed {
		return nil, ErrClosed
	}

	for _, file := range e.archive.File {
		if strings.Contains(file.Name, "/") || !strings.EqualFold(path.Ext(file.Name), ManifestExt) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, corrupt("open manifest: %v", err)
		}

		manifest, err := ParseManifest(rc)
		_ = rc.Close()

		return manifest, err
	}

	return nil, corrupt("no %s manifest", ManifestExt)
}

// PayloadRoot returns the "lib/<framework>/" prefix extraction reads from.
func (e *Extractor) PayloadRoot() (string, error) {
	if e.closed {
		return "", ErrClosed
	}

	if e.framework != "" {
		return libDir + e.framework + "/", nil
	}

	frameworks := make(map[string]struct{})

	for _, file := range e.archive.File {
		rest, ok := strings.CutPrefix(normalize(file.Name), libDir)
		if !ok {
			continue
		}

		framework, _, ok := strings.Cut(rest, "/")
		if ok && framework != "" {
			frameworks[framework] = struct{}{}
		}
	}

	switch len(frameworks) {
	case 0:
		return "", corrupt("no payload under %s", libDir)
	case 1:
		for framework := range frameworks {
			return libDir + framework + "/", nil
		}
	}

	names := make([]string, 0, len(frameworks))
	for framework := range frameworks {
		names = append(names, framework)
	}

	sort.Strings(names)

	return "", corrupt("ambiguous payload root, frameworks: %s", strings.Join(names, ", "))
}

// Extract writes the payload into destination.
func (e *Extractor) Extract(ctx context.Context, destination string) error {
	return e.ExtractStream(ctx, destination, nil)
}

// ExtractStream writes the payload into destination and calls onEntry after
// each entry is completed. An error from onEntry stops extraction.
func (e *Extractor) ExtractStream(ctx context.Context, destination string, onEntry func(Event) error) error {
	root, err := e.PayloadRoot()
	if err != nil {
		return err
	}

	if err = os.MkdirAll(destination, dirPerm); err != nil {
		return &ExtractionIOError{Path: destination, Err: err}
	}

	e.log.Debugw("Extracting package", "root", root, "destination", destination)

	var files int

	for _, file := range e.archive.File {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("extract %s: %w", e.path, err)
		}

		rel, ok := TargetPath(file.Name, root)
		if !ok {
			continue
		}

		if !filepath.IsLocal(filepath.FromSlash(strings.TrimSuffix(rel, "/"))) {
			return corrupt("entry %q escapes the destination", file.Name)
		}

		event, err := e.extractEntry(ctx, file, destination, rel)
		if err != nil {
			return err
		}

		if !event.Dir {
			files++
		}

		if onEntry != nil {
			if err = onEntry(event); err != nil {
				return err
			}
		}
	}

	e.log.Infow("Package extracted", "files", files, "destination", destination)

	return nil
}

func (e *Extractor) extractEntry(ctx context.Context, file *zip.File, destination, rel string) (Event, error) {
	if strings.HasSuffix(rel, "/") || file.FileInfo().IsDir() {
		rel = strings.TrimSuffix(rel, "/")
		target := filepath.Join(destination, filepath.FromSlash(rel))

		if err := os.MkdirAll(target, dirPerm); err != nil {
			return Event{}, &ExtractionIOError{Path: target, Err: err}
		}

		return Event{Path: rel, Dir: true}, nil
	}

	target := filepath.Join(destination, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return Event{}, &ExtractionIOError{Path: filepath.Dir(target), Err: err}
	}

	src, err := file.Open()
	if err != nil {
		return Event{}, corrupt("open entry %s: %v", file.Name, err)
	}

	defer func() {
		_ = src.Close()
	}()

	perm := file.Mode().Perm()
	if perm == 0 {
		perm = defaultFilePerm
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return Event{}, &ExtractionIOError{Path: target, Err: err}
	}

	written, copyErr := io.Copy(dst, contextReader{ctx: ctx, r: src})
	closeErr := dst.Close()

	switch {
	case copyErr != nil && ctx.Err() != nil:
		return Event{}, fmt.Errorf("extract %s: %w", file.Name, ctx.Err())
	case errors.Is(copyErr, zip.ErrChecksum), errors.Is(copyErr, zip.ErrFormat), errors.Is(copyErr, zip.ErrAlgorithm):
		return Event{}, corrupt("read entry %s: %v", file.Name, copyErr)
	case copyErr != nil:
		return Event{}, &ExtractionIOError{Path: target, Err: copyErr}
	case closeErr != nil:
		return Event{}, &ExtractionIOError{Path: target, Err: closeErr}
	}

	return Event{Path: rel, Size: written}, nil
}

// TargetPath maps an archive entry name to its output path under root.
// It reports false for entries outside root and for root itself.
func TargetPath(name, root string) (string, bool) {
	rel, ok := strings.CutPrefix(normalize(name), root)
	if !ok {
		return "", false
	}

	for {
		stripped, cut := strings.CutPrefix(rel, legacyRoot)
		if !cut {
			break
		}

		rel = stripped
	}

	if rel == "" || rel == "/" {
		return "", false
	}

	return rel, true
}

// Extract opens packagePath, extracts its payload into destination and closes it.
func Extract(ctx context.Context, packagePath, destination string, log *zap.SugaredLogger, opts ...Option) error {
	extractor, err := Open(packagePath, log, opts...)
	if err != nil {
		return err
	}

	defer func() {
		_ = extractor.Close()
	}()

	return extractor.Extract(ctx, destination)
}

func normalize(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

// contextReader stops a copy once ctx is canceled.
type contextReader struct {
	ctx context.Context //nolint:containedctx // scoped to a single io.Copy call.
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
