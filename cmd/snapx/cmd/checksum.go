package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/snapx/internal/service/checksum"
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, algorithm := range []string{checksum.SHA1, checksum.SHA256, checksum.SHA512} {
		rootCmd.AddCommand(&cobra.Command{
			Use:   algorithm + " <file>",
			Short: "Print the " + algorithm + " digest of a file.",
			Args:  cobra.ExactArgs(1),
			RunE: runWith(func(ctx context.Context, cmd *cobra.Command, args []string) error {
				return checksum.Run(ctx, &checksum.Options{
					Algorithm: algorithm,
					Path:      args[0],
					Output:    cmd.OutOrStdout(),
				})
			}),
		})
	}
}
