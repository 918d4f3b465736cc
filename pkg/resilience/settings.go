package resilience

import (
	"time"

	"github.com/armysmp/storefront/pkg/config"
)

const (
	defaultInterval         = time.Minute
	defaultOpenPeriod       = 30 * time.Second
	defaultFailureThreshold = 5
	defaultHalfOpenRequests = 1
)

// SettingsFor maps a config block onto breaker Settings for target. Zero or
// negative knobs take the package defaults.
func SettingsFor(target string, cfg config.BreakerConfig) Settings {
	s := Settings{
		Name:             target,
		Interval:         secondsOr(cfg.IntervalSeconds, defaultInterval),
		Timeout:          secondsOr(cfg.OpenSeconds, defaultOpenPeriod),
		FailureThreshold: defaultFailureThreshold,
		SuccessThreshold: defaultHalfOpenRequests,
	}
	if cfg.FailureThreshold > 0 {
		s.FailureThreshold = uint32(cfg.FailureThreshold)
	}
	if cfg.HalfOpenRequests > 0 {
		s.SuccessThreshold = uint32(cfg.HalfOpenRequests)
	}
	return s
}

func secondsOr(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
