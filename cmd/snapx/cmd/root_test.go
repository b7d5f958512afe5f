package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestResolveLogLevel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := filepath.Join(dir, "snapx-settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("log_level: debug\n"), 0o600))

	// Settings apply when the flag was not given.
	level, err := resolveLogLevel(false, "info", settings)
	require.NoError(t, err)
	require.Equal(t, zapcore.DebugLevel, level)

	// An explicit flag wins.
	level, err = resolveLogLevel(true, "warn", settings)
	require.NoError(t, err)
	require.Equal(t, zapcore.WarnLevel, level)

	// No settings file.
	level, err = resolveLogLevel(false, "info", filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, level)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("log_level: loud\n"), 0o600))

	_, err = resolveLogLevel(false, "info", broken)
	require.ErrorIs(t, err, errUnknownLogLevel)
}

func TestRunWithMarksFailureAsLogged(t *testing.T) {
	t.Parallel()

	errFailed := errors.New("failed")
	verb := &cobra.Command{Use: "demo"}

	err := runWith(func(ctx context.Context, _ *cobra.Command, _ []string) error {
		require.NotNil(t, ctx)

		return errFailed
	})(verb, nil)
	require.ErrorIs(t, err, errFailed)

	var logged *loggedError
	require.ErrorAs(t, err, &logged)

	err = runWith(func(context.Context, *cobra.Command, []string) error {
		return nil
	})(verb, nil)
	require.NoError(t, err)
}
