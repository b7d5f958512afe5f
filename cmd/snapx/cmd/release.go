package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/snapx/internal/service/release"
)

// specPath is shared by the release verbs.
var specPath string

// releaseCommand builds a release verb taking <app> <rid> plus extra arguments.
func releaseCommand(
	use, short string,
	extra int,
	run func(ctx context.Context, opts *release.Options) error,
	bind func(opts *release.Options, args []string),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2 + extra),
		RunE: runWith(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			opts := &release.Options{
				ConfigPath: configPath,
				SpecPath:   specPath,
				AppName:    args[0],
				Rid:        args[1],
				Output:     cmd.OutOrStdout(),
			}

			if bind != nil {
				bind(opts, args[2:])
			}

			return run(ctx, opts)
		}),
	}

	cmd.Flags().StringVarP(&specPath, "spec", "f", "", "path to the spec file (defaults to snapx.yaml)")

	return cmd
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(
		releaseCommand("promote <app> <rid> <channel>",
			"Publish the newest release of a channel to the next channel.", 1, release.RunPromote,
			func(opts *release.Options, args []string) {
				opts.Channel = args[0]
			}),
		releaseCommand("demote <app> <rid> <version>",
			"Remove the last channel of a release.", 1, release.RunDemote,
			func(opts *release.Options, args []string) {
				opts.Version = args[0]
			}),
		releaseCommand("gc <app> <rid>",
			"Delete releases and packages no channel needs.", 0, release.RunGC, nil),
		releaseCommand("list <app> <rid>",
			"List the releases of an app for every runtime.", 0, release.RunList, nil),
	)
}
