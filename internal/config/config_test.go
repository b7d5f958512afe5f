package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty settings get defaults and stay valid without a lock server.
	settings := new(Config)

	require.NoError(t, Validate(settings))
	require.Equal(t, TransportHTTP, settings.LockTransport)
	require.Equal(t, DefaultLockDuration, settings.LockDuration)
	require.Less(t, settings.LockRenewInterval, settings.LockDuration)
	require.ErrorIs(t, RequireLockServer(settings), ErrLockServerRequired)

	// Bad URI.
	settings = &Config{LockServer: "not a uri"}
	require.Error(t, Validate(settings))

	// Bad grpc socket.
	settings = &Config{LockServer: "nohost", LockTransport: TransportGRPC}
	require.Error(t, Validate(settings))

	// Unknown transport.
	settings = &Config{LockTransport: "carrier-pigeon"}
	require.Error(t, Validate(settings))

	// Renewal not shorter than the lease.
	settings = &Config{LockDuration: time.Second, LockRenewInterval: time.Second}
	require.Error(t, Validate(settings))

	// Lease longer than the lock service grants.
	settings = &Config{LockDuration: 25 * time.Hour}
	require.ErrorIs(t, Validate(settings), errLockDuration)

	settings = &Config{LockDuration: 24 * time.Hour}
	require.NoError(t, Validate(settings))

	// Okay.
	settings = &Config{LockServer: "https://locks.example.com/"}
	require.NoError(t, Validate(settings))
	require.NoError(t, RequireLockServer(settings))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		LockServer:    "127.0.0.1:50051",
		LockTransport: TransportGRPC,
		LockDuration:  time.Minute,
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.LockServer, loaded.LockServer)
	require.Equal(t, settings.LockTransport, loaded.LockTransport)
	require.Equal(t, time.Minute, loaded.LockDuration)
	require.Equal(t, 20*time.Second, loaded.LockRenewInterval)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadOrDefault_Missing returns defaults when the settings file is absent.
func TestLoadOrDefault_Missing(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Empty(t, cfg.LockServer)
	require.Equal(t, DefaultProcessPollInterval, cfg.ProcessPollInterval)
}
