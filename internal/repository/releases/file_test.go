package releases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/snapx/internal/domain/release"
)

func TestFileRepositoryNotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())

	index, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, index)

	index, err = repo.LoadOrEmpty(context.Background())
	require.NoError(t, err)
	require.Empty(t, index.Releases)
}

func TestFileRepositorySaveLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "feed")
	repo := NewFileRepository(dir)

	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	want := &domain.Index{Releases: []*domain.Release{{
		AppID:     "demoapp",
		Version:   "1.0.0",
		Rid:       "win-x64",
		Channels:  []string{"test", "staging"},
		Filename:  "demoapp_1.0.0_win-x64_snapx.nupkg",
		Sha512:    "c2hh",
		Size:      42,
		CreatedAt: created,
	}}}

	require.NoError(t, repo.Save(context.Background(), want))
	require.FileExists(t, filepath.Join(dir, IndexFilename))
	require.NoFileExists(t, filepath.Join(dir, IndexFilename+".tmp"))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestFileRepositoryConcurrentSavesStayReadable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var wg sync.WaitGroup

	// Separate repositories share no in-process mutex.
	for writer := range 4 {
		repo := NewFileRepository(dir)

		wg.Add(1)

		go func() {
			defer wg.Done()

			for round := range 25 {
				index := &domain.Index{Releases: []*domain.Release{{
					AppID:    fmt.Sprintf("app%d", writer),
					Version:  fmt.Sprintf("1.%d.0", round),
					Filename: fmt.Sprintf("app%d_1.%d.0.nupkg", writer, round),
				}}}

				if err := repo.Save(context.Background(), index); err != nil {
					t.Error(err)

					return
				}
			}
		}()
	}

	wg.Wait()

	index, err := NewFileRepository(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, index.Releases, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, IndexFilename, entries[0].Name())
}
