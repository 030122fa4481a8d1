package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/enrich-cli/internal/cache"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/waterfall"
)

// Config holds the full application configuration.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Waterfall WaterfallConfig           `yaml:"waterfall" mapstructure:"waterfall"`
	Retry     RetryConfig               `yaml:"retry" mapstructure:"retry"`
	Circuit   CircuitConfig             `yaml:"circuit" mapstructure:"circuit"`
	Batch     BatchConfig               `yaml:"batch" mapstructure:"batch"`
	Verify    VerifyConfig              `yaml:"verify" mapstructure:"verify"`
	Store     StoreConfig               `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig               `yaml:"cache" mapstructure:"cache"`
	Log       LogConfig                 `yaml:"log" mapstructure:"log"`
}

// ProviderConfig holds one vendor's credentials, endpoint and pricing.
type ProviderConfig struct {
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Cost      float64 `yaml:"cost" mapstructure:"cost"`
	RateLimit int     `yaml:"rate_limit" mapstructure:"rate_limit"` // calls per minute
}

// WaterfallConfig configures the cascade. DescriptorFile, when set, replaces
// the service order, costs and rate limits with a YAML descriptor file.
type WaterfallConfig struct {
	ServiceOrder            []string `yaml:"service_order" mapstructure:"service_order"`
	DescriptorFile          string   `yaml:"descriptor_file" mapstructure:"descriptor_file"`
	MinimumConfidence       float64  `yaml:"minimum_confidence" mapstructure:"minimum_confidence"`
	HighConfidence          float64  `yaml:"high_confidence" mapstructure:"high_confidence"`
	ExcellentConfidence     float64  `yaml:"excellent_confidence" mapstructure:"excellent_confidence"`
	PhoneMinimumConfidence  float64  `yaml:"phone_minimum_confidence" mapstructure:"phone_minimum_confidence"`
	PhoneHighConfidence     float64  `yaml:"phone_high_confidence" mapstructure:"phone_high_confidence"`
	MaxProvidersPerContact  int      `yaml:"max_providers_per_contact" mapstructure:"max_providers_per_contact"`
	StopOnHighConfidence    bool     `yaml:"cascade_stop_on_high_confidence" mapstructure:"cascade_stop_on_high_confidence"`
	EnableEmailVerification bool     `yaml:"enable_email_verification" mapstructure:"enable_email_verification"`
	EnablePhoneVerification bool     `yaml:"enable_phone_verification" mapstructure:"enable_phone_verification"`
	ProviderTimeoutSecs     int      `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
	SoftTimeLimitSecs       int      `yaml:"soft_time_limit_secs" mapstructure:"soft_time_limit_secs"`
	HardTimeLimitSecs       int      `yaml:"hard_time_limit_secs" mapstructure:"hard_time_limit_secs"`
}

// RetryConfig configures provider call retries.
type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	JitterMs    int `yaml:"jitter_ms" mapstructure:"jitter_ms"`
}

// CircuitConfig configures the per-provider circuit breaker.
type CircuitConfig struct {
	CooldownSecs int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// VerifyConfig configures email and phone verification.
type VerifyConfig struct {
	DefaultRegion string `yaml:"default_region" mapstructure:"default_region"`
	EmailAPIURL   string `yaml:"email_api_url" mapstructure:"email_api_url"`
	EmailAPIKey   string `yaml:"email_api_key" mapstructure:"email_api_key"`
}

// StoreConfig configures the database backend. An empty driver disables
// persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// CacheConfig configures the redis result cache. An empty address disables
// caching.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	TTLHours  int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// defaultProviders is the built-in service order with its pricing.
var defaultProviders = []struct {
	name      string
	cost      float64
	rateLimit int
}{
	{"icypeas", 0.01, 60},
	{"dropcontact", 0.02, 30},
	{"hunter", 0.03, 30},
	{"apollo", 0.05, 60},
	{"kaspr", 0.10, 10},
}

// Load reads configuration from a .env file, the config file and the
// environment, in increasing precedence. An empty path searches for
// config.yaml in the working directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	order := make([]string, 0, len(defaultProviders))
	for _, p := range defaultProviders {
		order = append(order, p.name)
		v.SetDefault("providers."+p.name+".api_key", "")
		v.SetDefault("providers."+p.name+".base_url", "")
		v.SetDefault("providers."+p.name+".cost", p.cost)
		v.SetDefault("providers."+p.name+".rate_limit", p.rateLimit)
	}
	ws := waterfall.DefaultSettings()
	v.SetDefault("waterfall.service_order", order)
	v.SetDefault("waterfall.descriptor_file", "")
	v.SetDefault("waterfall.minimum_confidence", ws.MinimumConfidence)
	v.SetDefault("waterfall.high_confidence", ws.HighConfidence)
	v.SetDefault("waterfall.excellent_confidence", ws.ExcellentConfidence)
	v.SetDefault("waterfall.phone_minimum_confidence", ws.PhoneMinimumConfidence)
	v.SetDefault("waterfall.phone_high_confidence", ws.PhoneHighConfidence)
	v.SetDefault("waterfall.max_providers_per_contact", ws.MaxProvidersPerContact)
	v.SetDefault("waterfall.cascade_stop_on_high_confidence", ws.StopOnHighConfidence)
	v.SetDefault("waterfall.enable_email_verification", ws.EnableEmailVerification)
	v.SetDefault("waterfall.enable_phone_verification", ws.EnablePhoneVerification)
	v.SetDefault("waterfall.provider_timeout_secs", int(ws.ProviderTimeout/time.Second))
	v.SetDefault("waterfall.soft_time_limit_secs", int(ws.SoftTimeLimit/time.Second))
	v.SetDefault("waterfall.hard_time_limit_secs", int(ws.HardTimeLimit/time.Second))
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay_ms", 1000)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("retry.jitter_ms", 1000)
	v.SetDefault("circuit.cooldown_secs", 60)
	v.SetDefault("batch.max_concurrent", waterfall.DefaultMaxConcurrent)
	v.SetDefault("verify.default_region", "US")
	v.SetDefault("verify.email_api_url", "")
	v.SetDefault("verify.email_api_key", "")
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.schema", "")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// Validate checks the configuration for the CLI. Offline runs need no
// provider credentials.
func (c *Config) Validate(offline bool) error {
	var errs []string

	if !offline {
		keyed := 0
		for _, name := range c.Waterfall.ServiceOrder {
			if c.Providers[name].APIKey != "" {
				keyed++
			}
		}
		if keyed == 0 && c.Waterfall.DescriptorFile == "" {
			errs = append(errs, "no provider in waterfall.service_order has an api_key")
		}
	}
	for _, name := range c.Waterfall.ServiceOrder {
		if _, ok := c.Providers[name]; !ok {
			errs = append(errs, fmt.Sprintf("providers.%s is not configured", name))
		}
	}

	switch c.Store.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 50 {
		errs = append(errs, "batch.max_concurrent must be between 1 and 50")
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTLHours < 1 {
		errs = append(errs, "cache.ttl_hours must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Settings converts the waterfall section to cascade settings.
func (c *Config) Settings() waterfall.Settings {
	w := c.Waterfall
	return waterfall.Settings{
		MinimumConfidence:       w.MinimumConfidence,
		HighConfidence:          w.HighConfidence,
		ExcellentConfidence:     w.ExcellentConfidence,
		PhoneMinimumConfidence:  w.PhoneMinimumConfidence,
		PhoneHighConfidence:     w.PhoneHighConfidence,
		MaxProvidersPerContact:  w.MaxProvidersPerContact,
		StopOnHighConfidence:    w.StopOnHighConfidence,
		EnableEmailVerification: w.EnableEmailVerification,
		EnablePhoneVerification: w.EnablePhoneVerification,
		ProviderTimeout:         time.Duration(w.ProviderTimeoutSecs) * time.Second,
		SoftTimeLimit:           time.Duration(w.SoftTimeLimitSecs) * time.Second,
		HardTimeLimit:           time.Duration(w.HardTimeLimitSecs) * time.Second,
	}
}

// WaterfallConfig builds the validated cascade configuration, either from
// the descriptor file or from the service order and provider sections.
func (c *Config) WaterfallConfig() (*waterfall.Config, error) {
	if c.Waterfall.DescriptorFile != "" {
		wc, err := waterfall.LoadConfig(c.Waterfall.DescriptorFile)
		if err != nil {
			return nil, eris.Wrap(err, "config: load descriptor file")
		}
		return wc, nil
	}

	costs := make(map[string]float64, len(c.Providers))
	rates := make(map[string]int, len(c.Providers))
	urls := make(map[string]string, len(c.Providers))
	for name, p := range c.Providers {
		costs[name] = p.Cost
		rates[name] = p.RateLimit
		urls[name] = p.BaseURL
	}
	wc := &waterfall.Config{
		Settings:  c.Settings(),
		Providers: waterfall.BuildDescriptors(c.Waterfall.ServiceOrder, costs, rates, urls),
	}
	if err := wc.Validate(); err != nil {
		return nil, eris.Wrap(err, "config: waterfall")
	}
	return wc, nil
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.Retry.MaxRetries, c.Retry.BaseDelayMs, c.Retry.MaxDelayMs, c.Retry.JitterMs)
}

// CircuitPolicy converts the circuit section.
func (c *Config) CircuitPolicy() resilience.ServiceStatusConfig {
	return resilience.FromCircuitConfig(c.Circuit.CooldownSecs)
}

// CacheSettings converts the cache section.
func (c *Config) CacheSettings() cache.Config {
	return cache.Config{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.Password,
		DB:       c.Cache.DB,
		TTL:      time.Duration(c.Cache.TTLHours) * time.Hour,
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
