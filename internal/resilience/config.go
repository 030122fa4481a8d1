package resilience

import (
	"time"
)

// FromRetryConfig converts config values to a RetryConfig. Non-positive
// values keep the defaults; a negative maxRetries keeps the default too,
// while zero disables retries.
func FromRetryConfig(maxRetries, baseDelayMs, maxDelayMs, jitterMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxRetries >= 0 {
		cfg.MaxRetries = maxRetries
	}
	if baseDelayMs > 0 {
		cfg.BaseDelay = time.Duration(baseDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		cfg.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond
	}
	if jitterMs >= 0 {
		cfg.Jitter = time.Duration(jitterMs) * time.Millisecond
	}
	return cfg
}

// FromCircuitConfig converts config values to a ServiceStatusConfig.
func FromCircuitConfig(cooldownSecs int) ServiceStatusConfig {
	cfg := DefaultServiceStatusConfig()
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}
