package lock

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/snapx/internal/lockclient"
	"github.com/oshokin/snapx/internal/mutex"
)

type fakeLocker struct {
	mu sync.Mutex

	busy     bool
	unlocked []string
}

func (f *fakeLocker) Acquire(context.Context, string, time.Duration) (string, error) {
	if f.busy {
		return "", lockclient.ErrConflict
	}

	return "challenge-1", nil
}

func (f *fakeLocker) Renew(context.Context, string, string) error {
	return nil
}

func (f *fakeLocker) Unlock(_ context.Context, _, challenge string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unlocked = append(f.unlocked, challenge)

	return nil
}

// syncBuffer is a strings.Builder safe for one writer and one reader.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.b.String()
}

func TestHoldReleasesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	locker := &fakeLocker{}
	out := &syncBuffer{}

	done := make(chan error, 1)

	go func() {
		done <- Hold(ctx, locker, "demoapp", mutex.Options{Duration: time.Minute}, out)
	}()

	require.Eventually(t, func() bool {
		return out.String() == "challenge-1\n"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	require.NoError(t, <-done)
	require.Equal(t, []string{"challenge-1"}, locker.unlocked)
}

func TestHoldUnderContention(t *testing.T) {
	t.Parallel()

	locker := &fakeLocker{busy: true}
	out := &syncBuffer{}

	err := Hold(context.Background(), locker, "demoapp", mutex.Options{
		Duration:   time.Minute,
		Retries:    1,
		RetryDelay: time.Millisecond,
	}, out)
	require.ErrorIs(t, err, mutex.ErrLockContention)
	require.Empty(t, out.String())
	require.Empty(t, locker.unlocked)
}

func TestRunRequiresName(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, RunLock(context.Background(), &Options{}), errNameRequired)
	require.ErrorIs(t, RunUnlock(context.Background(), &Options{}), errNameRequired)
}
