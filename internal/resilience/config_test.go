package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(2, 250, 5000, 0)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, time.Duration(0), cfg.Jitter)
}

func TestFromRetryConfig_Defaults(t *testing.T) {
	cfg := FromRetryConfig(-1, 0, 0, -1)
	assert.Equal(t, DefaultRetryConfig().MaxRetries, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, time.Second, cfg.Jitter)
}

func TestFromCircuitConfig(t *testing.T) {
	assert.Equal(t, 90*time.Second, FromCircuitConfig(90).Cooldown)
	assert.Equal(t, DefaultCooldown, FromCircuitConfig(0).Cooldown)
}
