package releases

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/snapx/internal/config"
	domain "github.com/oshokin/snapx/internal/domain/release"
)

// IndexFilename is the release index file inside a feed folder.
const IndexFilename = "snapx-releases.yaml"

// ErrNotFound is returned when the index file does not exist yet.
var ErrNotFound = errors.New("release index not found")

// Repository defines persistence operations for the release index.
type Repository interface {
	Load(ctx context.Context) (*domain.Index, error)
	Save(ctx context.Context, index *domain.Index) error
}

// FileRepository stores the index as YAML in a feed folder.
type FileRepository struct {
	// path is the index file location.
	path string
	// mu serializes access within the process.
	mu sync.Mutex
}

// NewFileRepository creates a repository for the index in feedDir.
func NewFileRepository(feedDir string) *FileRepository {
	return &FileRepository{
		path: filepath.Join(filepath.Clean(feedDir), IndexFilename),
	}
}

// Path returns the index file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the index from disk.
func (r *FileRepository) Load(_ context.Context) (*domain.Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read release index: %w", err)
	}

	index := new(domain.Index)
	if err = yaml.Unmarshal(contents, index); err != nil {
		return nil, fmt.Errorf("decode release index: %w", err)
	}

	return index, nil
}

// LoadOrEmpty behaves like Load but returns an empty index when none exists.
func (r *FileRepository) LoadOrEmpty(ctx context.Context) (*domain.Index, error) {
	index, err := r.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return new(domain.Index), nil
	}

	return index, err
}

// Save writes the index through a uniquely named temporary file and a rename,
// so concurrent writers never share a partial file. Callers that
// read-modify-write must hold the feed lock.
func (r *FileRepository) Save(_ context.Context, index *domain.Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode release index: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create feed folder: %w", err)
	}

	temporary, err := os.CreateTemp(filepath.Dir(r.path), "."+IndexFilename+"-*")
	if err != nil {
		return fmt.Errorf("create release index: %w", err)
	}

	// Best-effort cleanup.
	defer func() {
		if err != nil {
			_ = temporary.Close()
			_ = os.Remove(temporary.Name())
		}
	}()

	if _, err = temporary.Write(data); err != nil {
		return fmt.Errorf("write release index: %w", err)
	}

	if err = temporary.Chmod(config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write release index: %w", err)
	}

	if err = temporary.Close(); err != nil {
		return fmt.Errorf("write release index: %w", err)
	}

	if err = os.Rename(temporary.Name(), r.path); err != nil {
		return fmt.Errorf("replace release index: %w", err)
	}

	return nil
}
