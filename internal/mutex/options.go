package mutex

import (
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/snapx/internal/config"
)

// Options tunes lease timing and retry behaviour.
type Options struct {
	// Duration is the lease TTL requested from the service.
	Duration time.Duration
	// RenewInterval is the renewal period, strictly shorter than Duration.
	RenewInterval time.Duration
	// ReleaseTimeout bounds the release call issued by Dispose.
	ReleaseTimeout time.Duration
	// BreakPeriod keeps a released lease blocked for this long.
	BreakPeriod time.Duration
	// Retries is how many additional acquire attempts WithLock makes.
	Retries int
	// RetryDelay is the pause between acquire attempts.
	RetryDelay time.Duration
	// Logger receives lifecycle messages; nil discards them.
	Logger *zap.SugaredLogger
}

// OptionsFromConfig maps validated settings onto mutex options.
func OptionsFromConfig(cfg *config.Config, log *zap.SugaredLogger) Options {
	return Options{
		Duration:       cfg.LockDuration,
		RenewInterval:  cfg.LockRenewInterval,
		ReleaseTimeout: cfg.Timeout,
		Retries:        cfg.LockRetries,
		RetryDelay:     cfg.LockRetryDelay,
		Logger:         log,
	}
}

func (o Options) withDefaults() Options {
	if o.Duration <= 0 {
		o.Duration = config.DefaultLockDuration
	}

	if o.RenewInterval <= 0 || o.RenewInterval >= o.Duration {
		o.RenewInterval = o.Duration / 3
	}

	if o.ReleaseTimeout <= 0 {
		o.ReleaseTimeout = config.DefaultTimeout
	}

	if o.Retries < 0 {
		o.Retries = 0
	}

	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}

	return o
}
