package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/snapx/internal/config"
	"github.com/oshokin/snapx/internal/logger"
	"github.com/oshokin/snapx/internal/version"
)

// errUnknownLogLevel is returned for unrecognized --log-level values.
var errUnknownLogLevel = errors.New("unknown log level")

// logLevelFlag is the name of the persistent level flag.
const logLevelFlag = "log-level"

// loggedError is a verb failure that was already written to the log.
type loggedError struct {
	err error
}

func (e *loggedError) Error() string {
	return e.err.Error()
}

func (e *loggedError) Unwrap() error {
	return e.err
}

var (
	// configPath to the settings YAML file.
	configPath string
	// logLevel is the minimum level written to standard error.
	logLevel string

	// rootCmd is the snapx entry point; every verb is a subcommand.
	rootCmd = &cobra.Command{
		Use:   "snapx",
		Short: "Pack, publish and install application releases.",
		Long: `snapx packs application payloads into release packages, publishes them to
folder feeds through promotion channels and installs them side by side.

Release verbs hold a lock named after the app id on the lock service
configured in the settings file, so concurrent pipelines never edit the same
feed at once. The lock service itself is served by "snapx lockd".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the snapx CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		var logged *loggedError
		if !errors.As(err, &logged) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}

		os.Exit(1)
	}
}

// resolveLogLevel returns the --log-level value when it was given on the
// command line and the log_level of the settings file otherwise.
func resolveLogLevel(flagChanged bool, flagValue, settingsPath string) (zapcore.Level, error) {
	value := flagValue

	if !flagChanged {
		// Unreadable settings are reported by the verb that needs them.
		if cfg, err := config.LoadOrDefault(settingsPath); err == nil && cfg.LogLevel != "" {
			value = cfg.LogLevel
		}
	}

	level, ok := logger.ParseLogLevel(value)
	if !ok {
		return level, fmt.Errorf("%w %q", errUnknownLogLevel, value)
	}

	return level, nil
}

// commandContext returns a context canceled on SIGINT/SIGTERM that carries the CLI logger.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc, error) {
	level, err := resolveLogLevel(cmd.Flags().Changed(logLevelFlag), logLevel, configPath)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(zap.NewAtomicLevelAt(level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	ctx = logger.ToContext(ctx, log)

	return ctx, func() {
		stop()

		_ = log.Sync()
	}, nil
}

// runWith wraps a verb so it runs with commandContext and logs its failure.
func runWith(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop, err := commandContext(cmd)
		if err != nil {
			return err
		}

		defer stop()

		ctx = logger.WithKV(ctx, "command", cmd.CommandPath())

		if err = fn(ctx, cmd, args); err != nil {
			logger.ErrorKV(ctx, "Command failed", "error", err)

			return &loggedError{err: err}
		}

		return nil
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to settings file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, logLevelFlag, config.DefaultLogLevel,
			"minimum log level (debug, info, warn, error); defaults to log_level from the settings file")
}
