package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

// chdirTemp runs the test in an empty directory so no config.yaml or .env
// is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"icypeas", "dropcontact", "hunter", "apollo", "kaspr"}, cfg.Waterfall.ServiceOrder)
	assert.InDelta(t, 0.30, cfg.Waterfall.MinimumConfidence, 0.001)
	assert.InDelta(t, 0.80, cfg.Waterfall.HighConfidence, 0.001)
	assert.InDelta(t, 0.90, cfg.Waterfall.ExcellentConfidence, 0.001)
	assert.InDelta(t, 0.40, cfg.Waterfall.PhoneMinimumConfidence, 0.001)
	assert.InDelta(t, 0.70, cfg.Waterfall.PhoneHighConfidence, 0.001)
	assert.Equal(t, 5, cfg.Waterfall.MaxProvidersPerContact)
	assert.True(t, cfg.Waterfall.StopOnHighConfidence)
	assert.True(t, cfg.Waterfall.EnableEmailVerification)
	assert.Equal(t, 30, cfg.Waterfall.ProviderTimeoutSecs)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 1000, cfg.Retry.BaseDelayMs)
	assert.Equal(t, 1000, cfg.Retry.JitterMs)
	assert.Equal(t, 60, cfg.Circuit.CooldownSecs)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrent)
	assert.Equal(t, "US", cfg.Verify.DefaultRegion)
	assert.Equal(t, "", cfg.Store.Driver)
	assert.Equal(t, 24, cfg.Cache.TTLHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.Contains(t, cfg.Providers, "kaspr")
	assert.InDelta(t, 0.10, cfg.Providers["kaspr"].Cost, 0.001)
	assert.Equal(t, 10, cfg.Providers["kaspr"].RateLimit)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
providers:
  hunter:
    api_key: hk
    cost: 0.04
waterfall:
  service_order: [hunter, icypeas]
  max_providers_per_contact: 2
store:
  driver: sqlite
  database_url: enrich.db
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"hunter", "icypeas"}, cfg.Waterfall.ServiceOrder)
	assert.Equal(t, 2, cfg.Waterfall.MaxProvidersPerContact)
	assert.Equal(t, "hk", cfg.Providers["hunter"].APIKey)
	assert.InDelta(t, 0.04, cfg.Providers["hunter"].Cost, 0.001)
	// Unset provider keys keep their defaults.
	assert.Equal(t, 30, cfg.Providers["hunter"].RateLimit)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 0.90, cfg.Waterfall.ExcellentConfidence, 0.001)
}

func TestLoadExplicitPath(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "enrich.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  max_concurrent: 8\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	chdirTemp(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config: read file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ENRICH_STORE_DRIVER", "postgres")
	t.Setenv("ENRICH_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvProviderKey(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ENRICH_PROVIDERS_HUNTER_API_KEY", "from-env")
	t.Setenv("ENRICH_WATERFALL_MINIMUM_CONFIDENCE", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Providers["hunter"].APIKey)
	assert.InDelta(t, 0.5, cfg.Waterfall.MinimumConfidence, 0.001)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ENRICH_PROVIDERS_ICYPEAS_API_KEY=dotenv-key\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("ENRICH_PROVIDERS_ICYPEAS_API_KEY") }) //nolint:errcheck

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Providers["icypeas"].APIKey)
}

func TestWaterfallConfig(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("")
	require.NoError(t, err)

	wc, err := cfg.WaterfallConfig()
	require.NoError(t, err)

	order := wc.ServiceOrder()
	require.Len(t, order, 5)
	assert.Equal(t, "icypeas", order[0].Name)
	assert.Equal(t, 1, order[0].PriorityRank)
	assert.InDelta(t, 0.01, order[0].CostPerCall, 0.001)
	assert.Equal(t, 60, order[0].CallsPerMinute)
	assert.Equal(t, "kaspr", order[4].Name)
	assert.Equal(t, 30*time.Second, wc.Settings.ProviderTimeout)
	assert.Equal(t, 300*time.Second, wc.Settings.HardTimeLimit)
}

func TestWaterfallConfig_Invalid(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Waterfall.ServiceOrder = nil
	_, err = cfg.WaterfallConfig()
	assert.ErrorContains(t, err, "service order is empty")

	cfg.Waterfall.ServiceOrder = []string{"icypeas"}
	cfg.Waterfall.MinimumConfidence = 0.95
	_, err = cfg.WaterfallConfig()
	assert.ErrorContains(t, err, "minimum <= high <= excellent")
}

func TestWaterfallConfig_DescriptorFile(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "waterfall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
waterfall:
  providers:
    - { name: hunter, cost_per_call: 0.02, priority_rank: 1 }
`), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Waterfall.DescriptorFile = path

	wc, err := cfg.WaterfallConfig()
	require.NoError(t, err)
	require.Len(t, wc.Providers, 1)
	assert.Equal(t, "hunter", wc.Providers[0].Name)
}

func TestPolicies(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("")
	require.NoError(t, err)

	retry := cfg.RetryPolicy()
	assert.Equal(t, 3, retry.MaxRetries)
	assert.Equal(t, time.Second, retry.BaseDelay)
	assert.Equal(t, resilience.DefaultRetryConfig().Jitter, retry.Jitter)
	assert.Equal(t, 60*time.Second, cfg.CircuitPolicy().Cooldown)

	cfg.Cache.RedisAddr = "localhost:6379"
	cc := cfg.CacheSettings()
	assert.Equal(t, "localhost:6379", cc.Addr)
	assert.Equal(t, 24*time.Hour, cc.TTL)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		offline bool
		mutate  func(*Config)
		wantErr string
	}{
		{name: "offline defaults", offline: true, mutate: func(*Config) {}},
		{name: "online without keys", mutate: func(*Config) {}, wantErr: "has an api_key"},
		{
			name: "online with one key",
			mutate: func(c *Config) {
				p := c.Providers["hunter"]
				p.APIKey = "k"
				c.Providers["hunter"] = p
			},
		},
		{
			name:    "unknown provider in order",
			offline: true,
			mutate:  func(c *Config) { c.Waterfall.ServiceOrder = []string{"snov"} },
			wantErr: "providers.snov is not configured",
		},
		{
			name:    "store without url",
			offline: true,
			mutate:  func(c *Config) { c.Store.Driver = "sqlite" },
			wantErr: "store.database_url is required",
		},
		{
			name:    "unsupported driver",
			offline: true,
			mutate:  func(c *Config) { c.Store.Driver = "mysql"; c.Store.DatabaseURL = "x" },
			wantErr: "not supported",
		},
		{
			name:    "concurrency bounds",
			offline: true,
			mutate:  func(c *Config) { c.Batch.MaxConcurrent = 51 },
			wantErr: "batch.max_concurrent must be between 1 and 50",
		},
		{
			name:    "cache ttl",
			offline: true,
			mutate:  func(c *Config) { c.Cache.RedisAddr = "localhost:6379"; c.Cache.TTLHours = 0 },
			wantErr: "cache.ttl_hours",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			cfg.Providers = make(map[string]ProviderConfig, len(base.Providers))
			for k, v := range base.Providers {
				cfg.Providers[k] = v
			}
			tt.mutate(&cfg)
			err := cfg.Validate(tt.offline)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
