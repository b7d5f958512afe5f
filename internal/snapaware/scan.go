package snapaware

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/snapx/internal/logger"
)

// maxScanSize skips files too large to be a helper binary.
const maxScanSize = 512 << 20

// binaryExtensions are treated as candidates regardless of mode bits.
var binaryExtensions = map[string]struct{}{
	".exe": {},
	".dll": {},
	".so":  {},
}

// Binary is a spec-aware file found by Scan.
type Binary struct {
	// Path is the absolute file path.
	Path string
	// Name is the file name.
	Name string
	// ProtocolVersion is the minimum protocol version from the marker.
	ProtocolVersion uint32
}

// Scanner walks directories for spec-aware binaries.
type Scanner struct {
	// log is the scanner logger.
	log *zap.SugaredLogger
	// limit bounds concurrent file reads.
	limit int
}

// NewScanner creates a scanner.
func NewScanner(log *zap.SugaredLogger) *Scanner {
	return &Scanner{
		log:   logger.OrNop(log),
		limit: runtime.NumCPU(),
	}
}

// Scan returns binaries under dir whose marker version is at least
// minVersion, sorted by path. A missing dir yields no binaries.
func (s *Scanner) Scan(ctx context.Context, dir string, minVersion uint32) ([]Binary, error) {
	candidates, err := s.candidates(dir)
	if err != nil {
		return nil, err
	}

	found := make([]*Binary, len(candidates))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.limit)

	for i, path := range candidates {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			marker, err := ReadFile(path)

			switch {
			case err == nil:
			case errors.Is(err, ErrNoMarker):
				return nil
			default:
				s.log.Debugw("Skipping unreadable marker", "path", path, "error", err)

				return nil
			}

			if marker.ProtocolVersion < minVersion {
				return nil
			}

			found[i] = &Binary{
				Path:            path,
				Name:            filepath.Base(path),
				ProtocolVersion: marker.ProtocolVersion,
			}

			return nil
		})
	}

	if err = group.Wait(); err != nil {
		return nil, err
	}

	result := make([]Binary, 0, len(found))

	for _, binary := range found {
		if binary != nil {
			result = append(result, *binary)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})

	s.log.Debugw("Spec-aware scan finished", "dir", dir, "candidates", len(candidates), "found", len(result))

	return result, nil
}

// Scan is NewScanner(nil).Scan.
func Scan(ctx context.Context, dir string, minVersion uint32) ([]Binary, error) {
	return NewScanner(nil).Scan(ctx, dir, minVersion)
}

func (s *Scanner) candidates(dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if _, err = os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var paths []string

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		if info.Size() < int64(MarkerSize) || info.Size() > maxScanSize {
			return nil
		}

		if isCandidate(entry.Name(), info.Mode()) {
			paths = append(paths, path)
		}

		return nil
	})

	return paths, err
}

func isCandidate(name string, mode fs.FileMode) bool {
	if _, ok := binaryExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return true
	}

	return mode&0o111 != 0
}
