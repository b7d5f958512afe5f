package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/snapx/internal/service/packager"
)

var (
	// packOptions are bound to the pack flags.
	packOptions packager.Options

	// packCmd builds a release package into the app's home feed.
	packCmd = &cobra.Command{
		Use:   "pack <app> <rid> <input-dir>",
		Short: "Pack an application payload into its first channel's feed.",
		Args:  cobra.ExactArgs(3),
		RunE: runWith(func(ctx context.Context, _ *cobra.Command, args []string) error {
			packOptions.ConfigPath = configPath
			packOptions.AppName = args[0]
			packOptions.Rid = args[1]
			packOptions.InputDir = args[2]

			return packager.Run(ctx, &packOptions)
		}),
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	packCmd.Flags().StringVarP(&packOptions.SpecPath, "spec", "f", "", "path to the spec file (defaults to snapx.yaml)")
	packCmd.Flags().StringVar(&packOptions.Description, "description", "", "package description")

	rootCmd.AddCommand(packCmd)
}
