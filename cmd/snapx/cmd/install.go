package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/snapx/internal/service/installer"
)

var (
	// installOptions are bound to the install flags.
	installOptions installer.CommandOptions

	// installCmd installs a package under an application root.
	installCmd = &cobra.Command{
		Use:   "install <package> <root-dir>",
		Short: "Install a release package side by side with previous versions.",
		Long: `Extracts the package into <root-dir>/app-<version>, stops running spec-aware
binaries of the previous install, switches the current-version pointer and
runs the post-install hook of every spec-aware binary in the new version.`,
		Args: cobra.ExactArgs(2),
		RunE: runWith(func(ctx context.Context, _ *cobra.Command, args []string) error {
			installOptions.ConfigPath = configPath
			installOptions.PackagePath = args[0]
			installOptions.RootDir = args[1]

			return installer.Run(ctx, &installOptions)
		}),
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := installCmd.Flags()
	flags.StringVar(&installOptions.Framework, "framework", "", "payload framework folder (detected when empty)")
	flags.StringVar(&installOptions.MainExecutable, "main-exe", "", "payload-relative executable shortcuts point to")
	flags.StringVar(&installOptions.ShortcutName, "shortcut-name", "", "shortcut display name (defaults to the package id)")
	flags.StringSliceVar(&installOptions.Shortcuts, "shortcut", nil, "shortcut locations: desktop, startmenu")
	flags.StringVar(&installOptions.LockName, "lock", "", "hold this lock on the lock service during the install")

	rootCmd.AddCommand(installCmd)
}
