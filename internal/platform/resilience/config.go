package resilience

import "time"

// BreakerConfig controls when the provider breaker stops sending requests.
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultBreakerConfig is opt-in: a disabled breaker lets every team reach
// the provider.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          false,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

func NormalizeBreakerConfig(cfg BreakerConfig) BreakerConfig {
	defaults := DefaultBreakerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	return cfg
}
