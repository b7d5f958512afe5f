package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/snapx/internal/service/lock"
)

var (
	// breakPeriod is bound to the unlock --break-period flag.
	breakPeriod time.Duration

	// lockCmd acquires a lock and holds it until interrupted.
	lockCmd = &cobra.Command{
		Use:   "lock <name>",
		Short: "Acquire a lock and hold it until interrupted.",
		Long: `Acquires the named lock on the configured lock service, prints its challenge
and keeps renewing the lease until SIGINT or SIGTERM, then releases it.`,
		Args: cobra.ExactArgs(1),
		RunE: runWith(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			return lock.RunLock(ctx, &lock.Options{
				ConfigPath: configPath,
				Name:       args[0],
				Output:     cmd.OutOrStdout(),
			})
		}),
	}

	// unlockCmd force releases a lease by challenge.
	unlockCmd = &cobra.Command{
		Use:   "unlock <name> <challenge>",
		Short: "Release a lock held under the given challenge.",
		Args:  cobra.ExactArgs(2),
		RunE: runWith(func(ctx context.Context, _ *cobra.Command, args []string) error {
			return lock.RunUnlock(ctx, &lock.Options{
				ConfigPath:  configPath,
				Name:        args[0],
				Challenge:   args[1],
				BreakPeriod: breakPeriod,
			})
		}),
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	unlockCmd.Flags().DurationVar(&breakPeriod, "break-period", 0,
		"keep the lease for this grace window instead of releasing it immediately")

	rootCmd.AddCommand(lockCmd, unlockCmd)
}
