package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/snapx/internal/domain/lease"
)

// Lock service transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config holds the settings shared by snapx verbs.
type Config struct {
	// LockServer is the lock service address: a base URL for http, host:port for grpc.
	LockServer string `yaml:"lock_server"`
	// LockTransport selects the lock service protocol.
	LockTransport string `yaml:"lock_transport"`
	// LockDuration is the lease TTL requested on acquisition.
	LockDuration time.Duration `yaml:"lock_duration"`
	// LockRenewInterval is how often a held lease is renewed. Must be shorter than LockDuration.
	LockRenewInterval time.Duration `yaml:"lock_renew_interval"`
	// LockRetries is the number of acquisition attempts before giving up.
	LockRetries int `yaml:"lock_retries"`
	// LockRetryDelay is the pause between acquisition attempts.
	LockRetryDelay time.Duration `yaml:"lock_retry_delay"`
	// ProcessPollInterval bounds how long a process wait can go without observing cancellation.
	ProcessPollInterval time.Duration `yaml:"process_poll_interval"`
	// HookTimeout limits each install lifecycle hook invocation.
	HookTimeout time.Duration `yaml:"hook_timeout"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written to standard error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for snapx settings.
	DefaultConfigFilename = "snapx-settings.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLockDuration is the default lease TTL.
	DefaultLockDuration = 5 * time.Minute

	// DefaultLockRetries is the default number of acquisition attempts.
	DefaultLockRetries = 3

	// DefaultLockRetryDelay is the default pause between acquisition attempts.
	DefaultLockRetryDelay = 2 * time.Second

	// DefaultProcessPollInterval is the default process exit polling interval.
	DefaultProcessPollInterval = 2 * time.Second

	// DefaultHookTimeout is the default limit for a lifecycle hook.
	DefaultHookTimeout = 30 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrLockServerRequired is returned when a verb needs the lock service but no address is set.
	ErrLockServerRequired = errors.New("lock server address must be provided")
	// errUnknownTransport is returned for an unsupported lock_transport value.
	errUnknownTransport = errors.New("unknown lock transport")
	// errRenewInterval is returned when renewal would not happen before the lease expires.
	errRenewInterval = errors.New("lock renew interval must be shorter than lock duration")
	// errLockDuration is returned when the lease TTL exceeds what the lock service grants.
	errLockDuration = errors.New("lock duration is too long")
)

// Default returns settings with every default applied and no lock server.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings for formatting.
// An empty LockServer is valid; RequireLockServer enforces it for verbs that need it.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	applyDefaults(settings)

	switch settings.LockTransport {
	case TransportHTTP, TransportGRPC:
	default:
		return fmt.Errorf("%w: %q", errUnknownTransport, settings.LockTransport)
	}

	if settings.LockDuration > lease.MaxDuration {
		return fmt.Errorf("%w: %s exceeds %s", errLockDuration, settings.LockDuration, lease.MaxDuration)
	}

	if settings.LockRenewInterval >= settings.LockDuration {
		return errRenewInterval
	}

	if settings.LockServer == "" {
		return nil
	}

	return validateLockServer(settings)
}

// RequireLockServer fails when the settings carry no lock service address.
func RequireLockServer(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.LockServer == "" {
		return ErrLockServerRequired
	}

	return nil
}

func validateLockServer(settings *Config) error {
	if settings.LockTransport == TransportGRPC {
		if _, _, err := net.SplitHostPort(settings.LockServer); err != nil {
			return fmt.Errorf("invalid lock server address: %w", err)
		}

		return nil
	}

	if _, err := url.ParseRequestURI(settings.LockServer); err != nil {
		return fmt.Errorf("invalid lock server URI: %w", err)
	}

	return nil
}

func applyDefaults(settings *Config) {
	if settings.LockTransport == "" {
		settings.LockTransport = TransportHTTP
	}

	if settings.LockDuration <= 0 {
		settings.LockDuration = DefaultLockDuration
	}

	if settings.LockRenewInterval <= 0 {
		settings.LockRenewInterval = settings.LockDuration / 3
	}

	if settings.LockRetries <= 0 {
		settings.LockRetries = DefaultLockRetries
	}

	if settings.LockRetryDelay <= 0 {
		settings.LockRetryDelay = DefaultLockRetryDelay
	}

	if settings.ProcessPollInterval <= 0 {
		settings.ProcessPollInterval = DefaultProcessPollInterval
	}

	if settings.HookTimeout <= 0 {
		settings.HookTimeout = DefaultHookTimeout
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}
}
