package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/snapx/internal/service/lockd"
)

var (
	// lockdOptions are bound to the lockd flags.
	lockdOptions lockd.Options

	// lockdCmd serves the lock service.
	lockdCmd = &cobra.Command{
		Use:   "lockd",
		Short: "Run the lock service over HTTP and gRPC.",
		Long: `Serves the Acquire/Renew/Unlock lock protocol used by release verbs.

HTTP listens on --http (use "-" to disable) and also exposes /metrics.
gRPC is enabled with --grpc. Leases live in memory unless --store names a
SQLite database file.`,
		Args: cobra.NoArgs,
		RunE: runWith(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			return lockd.Run(ctx, &lockdOptions)
		}),
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := lockdCmd.Flags()
	flags.StringVar(&lockdOptions.HTTPAddress, "http", lockd.DefaultHTTPAddress, "HTTP listen address")
	flags.StringVar(&lockdOptions.GRPCAddress, "grpc", "", "gRPC listen address")
	flags.StringVar(&lockdOptions.StorePath, "store", "", "SQLite lease database file")

	rootCmd.AddCommand(lockdCmd)
}
