package lockd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/snapx/internal/lockclient"
	repo "github.com/oshokin/snapx/internal/repository/lease"
)

func listen(t *testing.T) net.Listener {
	t.Helper()

	lis, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return lis
}

// TestServe_BothTransports shares one lease table between HTTP and gRPC clients.
func TestServe_BothTransports(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	httpLis, grpcLis := listen(t), listen(t)

	done := make(chan error, 1)

	go func() {
		done <- Serve(ctx, NewService(repo.NewMemoryRepository(), nil), httpLis, grpcLis)
	}()

	httpClient, err := lockclient.NewHTTP("http://"+httpLis.Addr().String(), lockclient.WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	grpcClient, err := lockclient.DialGRPC(grpcLis.Addr().String(), lockclient.WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = httpClient.Close()
		_ = grpcClient.Close()
	})

	challenge, err := httpClient.Acquire(ctx, "demoapp", time.Minute)
	require.NoError(t, err)

	_, err = grpcClient.Acquire(ctx, "demoapp", time.Minute)
	require.ErrorIs(t, err, lockclient.ErrConflict)

	require.NoError(t, grpcClient.Renew(ctx, "demoapp", challenge))
	require.NoError(t, grpcClient.Unlock(ctx, "demoapp", challenge, 0))

	_, err = httpClient.Acquire(ctx, "demoapp", time.Minute)
	require.NoError(t, err)

	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("lock service did not stop")
	}
}

func TestRun_RequiresListener(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{HTTPAddress: "-"})
	require.ErrorIs(t, err, ErrNoListener)
}
