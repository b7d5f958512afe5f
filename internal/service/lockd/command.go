package lockd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpclock "github.com/oshokin/snapx/internal/api/grpc/lock"
	httplock "github.com/oshokin/snapx/internal/api/http/lock"
	"github.com/oshokin/snapx/internal/logger"
	repo "github.com/oshokin/snapx/internal/repository/lease"
)

// DefaultHTTPAddress is where the HTTP API listens when nothing else is set.
const DefaultHTTPAddress = ":7070"

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// ErrNoListener indicates that both transports were disabled.
var ErrNoListener = errors.New("no listen address configured")

// Options controls the lockd process.
type Options struct {
	// HTTPAddress is the HTTP listen address; "-" disables HTTP.
	HTTPAddress string
	// GRPCAddress is the gRPC listen address; empty disables gRPC.
	GRPCAddress string
	// StorePath is the SQLite database file; empty keeps leases in memory.
	StorePath string
}

// Run serves the lock service until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lockd")

	httpAddress := opts.HTTPAddress
	if httpAddress == "" {
		httpAddress = DefaultHTTPAddress
	}

	if httpAddress == "-" {
		httpAddress = ""
	}

	if httpAddress == "" && opts.GRPCAddress == "" {
		return ErrNoListener
	}

	repository, closeStore, err := openStore(ctx, opts.StorePath)
	if err != nil {
		return err
	}

	// Best-effort cleanup.
	defer closeStore()

	var httpLis, grpcLis net.Listener

	lc := net.ListenConfig{}

	if httpAddress != "" {
		if httpLis, err = lc.Listen(ctx, "tcp", httpAddress); err != nil {
			return fmt.Errorf("listen on %s: %w", httpAddress, err)
		}
	}

	if opts.GRPCAddress != "" {
		if grpcLis, err = lc.Listen(ctx, "tcp", opts.GRPCAddress); err != nil {
			if httpLis != nil {
				_ = httpLis.Close()
			}

			return fmt.Errorf("listen on %s: %w", opts.GRPCAddress, err)
		}
	}

	logger.InfoKV(ctx, "Lock service listening",
		"http", httpAddress,
		"grpc", opts.GRPCAddress,
		"store", storeName(opts.StorePath))

	return Serve(ctx, NewService(repository, logger.FromContext(ctx)), httpLis, grpcLis)
}

// Serve runs the transports on the given listeners until ctx is canceled.
// A nil listener disables its transport.
func Serve(ctx context.Context, service *Service, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	if httpLis != nil {
		server := &http.Server{
			Handler:           httplock.NewServer(service).Handler(),
			ReadHeaderTimeout: shutdownTimeout,
		}

		g.Go(func() error {
			if err := server.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			logger.Info(ctx, "Shutting down HTTP server")

			return server.Shutdown(shutdownCtx)
		})
	}

	if grpcLis != nil {
		grpcServer := grpc.NewServer()
		grpclock.RegisterLockServiceServer(grpcServer, grpclock.NewServer(service))

		g.Go(func() error {
			if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info(ctx, "Shutting down gRPC server")
			grpcServer.GracefulStop()

			return nil
		})
	}

	err := g.Wait()

	logger.Info(ctx, "Lock service stopped")

	return err
}

func openStore(ctx context.Context, path string) (repo.Repository, func(), error) {
	if path == "" {
		return repo.NewMemoryRepository(), func() {}, nil
	}

	store, err := repo.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	return store, func() {
		_ = store.Close()
	}, nil
}

func storeName(path string) string {
	if path == "" {
		return "memory"
	}

	return path
}
