package waterfall

import (
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config is the top-level waterfall configuration.
type Config struct {
	Settings  Settings             `yaml:"settings"`
	Providers []ProviderDescriptor `yaml:"providers"`
}

// ProviderDescriptor is the static description of one provider. The
// descriptors sorted by PriorityRank form the service order.
type ProviderDescriptor struct {
	Name           string  `yaml:"name"`
	CostPerCall    float64 `yaml:"cost_per_call"`
	CallsPerMinute int     `yaml:"calls_per_minute"`
	PriorityRank   int     `yaml:"priority_rank"` // ascending = cheaper, tried first
	BaseURL        string  `yaml:"base_url"`
}

// Settings holds the cascade thresholds and switches.
type Settings struct {
	MinimumConfidence      float64 `yaml:"minimum_confidence"`
	HighConfidence         float64 `yaml:"high_confidence"`
	ExcellentConfidence    float64 `yaml:"excellent_confidence"`
	PhoneMinimumConfidence float64 `yaml:"phone_minimum_confidence"`
	PhoneHighConfidence    float64 `yaml:"phone_high_confidence"`

	MaxProvidersPerContact int  `yaml:"max_providers_per_contact"`
	StopOnHighConfidence   bool `yaml:"cascade_stop_on_high_confidence"`

	EnableEmailVerification bool `yaml:"enable_email_verification"`
	EnablePhoneVerification bool `yaml:"enable_phone_verification"`

	// ProviderTimeout bounds a single provider call, polling included.
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	// SoftTimeLimit only logs a warning when a cascade runs past it.
	SoftTimeLimit time.Duration `yaml:"soft_time_limit"`
	// HardTimeLimit abandons a cascade between provider attempts.
	HardTimeLimit time.Duration `yaml:"hard_time_limit"`
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		MinimumConfidence:       0.30,
		HighConfidence:          0.80,
		ExcellentConfidence:     0.90,
		PhoneMinimumConfidence:  0.40,
		PhoneHighConfidence:     0.70,
		MaxProvidersPerContact:  5,
		StopOnHighConfidence:    true,
		EnableEmailVerification: true,
		EnablePhoneVerification: true,
		ProviderTimeout:         30 * time.Second,
		SoftTimeLimit:           180 * time.Second,
		HardTimeLimit:           300 * time.Second,
	}
}

// Validate checks that the settings are internally consistent.
func (s Settings) Validate() error {
	for name, v := range map[string]float64{
		"minimum_confidence":       s.MinimumConfidence,
		"high_confidence":          s.HighConfidence,
		"excellent_confidence":     s.ExcellentConfidence,
		"phone_minimum_confidence": s.PhoneMinimumConfidence,
		"phone_high_confidence":    s.PhoneHighConfidence,
	} {
		if v < 0 || v > 1 {
			return eris.Errorf("waterfall: %s must be within [0,1], got %v", name, v)
		}
	}
	if s.MinimumConfidence > s.HighConfidence || s.HighConfidence > s.ExcellentConfidence {
		return eris.New("waterfall: thresholds must satisfy minimum <= high <= excellent")
	}
	if s.PhoneMinimumConfidence > s.PhoneHighConfidence {
		return eris.New("waterfall: phone thresholds must satisfy minimum <= high")
	}
	if s.MaxProvidersPerContact < 1 {
		return eris.Errorf("waterfall: max_providers_per_contact must be >= 1, got %d", s.MaxProvidersPerContact)
	}
	return nil
}

// Validate checks the service order and settings.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return eris.New("waterfall: service order is empty")
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, d := range c.Providers {
		if d.Name == "" {
			return eris.New("waterfall: provider with empty name")
		}
		if seen[d.Name] {
			return eris.Errorf("waterfall: provider %s listed twice", d.Name)
		}
		seen[d.Name] = true
		if d.CostPerCall < 0 {
			return eris.Errorf("waterfall: provider %s has negative cost", d.Name)
		}
	}
	return c.Settings.Validate()
}

// ServiceOrder returns the descriptors sorted by ascending PriorityRank.
// Equal ranks keep their configured order.
func (c *Config) ServiceOrder() []ProviderDescriptor {
	order := make([]ProviderDescriptor, len(c.Providers))
	copy(order, c.Providers)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].PriorityRank < order[j].PriorityRank
	})
	return order
}

// RateLimits returns the provider -> calls-per-minute map.
func (c *Config) RateLimits() map[string]int {
	out := make(map[string]int, len(c.Providers))
	for _, d := range c.Providers {
		out[d.Name] = d.CallsPerMinute
	}
	return out
}

// Costs returns the provider -> cost-per-call map.
func (c *Config) Costs() map[string]float64 {
	out := make(map[string]float64, len(c.Providers))
	for _, d := range c.Providers {
		out[d.Name] = d.CostPerCall
	}
	return out
}

// BuildDescriptors assembles descriptors from the flat configuration
// surface: the ordered provider list plus per-provider cost, rate and base
// URL maps. Priority rank is the position in order.
func BuildDescriptors(order []string, costs map[string]float64, rates map[string]int, baseURLs map[string]string) []ProviderDescriptor {
	out := make([]ProviderDescriptor, 0, len(order))
	for i, name := range order {
		out = append(out, ProviderDescriptor{
			Name:           name,
			CostPerCall:    costs[name],
			CallsPerMinute: rates[name],
			PriorityRank:   i + 1,
			BaseURL:        baseURLs[name],
		})
	}
	return out
}

// LoadConfig reads waterfall config from a YAML file. Settings missing from
// the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "waterfall: read config %s", path)
	}

	// The YAML has a top-level "waterfall" key
	wrapper := struct {
		Waterfall Config `yaml:"waterfall"`
	}{
		Waterfall: Config{Settings: DefaultSettings()},
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "waterfall: parse config")
	}

	cfg := &wrapper.Waterfall
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
