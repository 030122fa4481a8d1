// Package resilience provides the circuit breaker, rate limiter and retry
// wrapper shared by every cascade in the process.
package resilience

import (
	"sort"
	"sync"
	"time"
)

// DefaultCooldown is how long a provider stays unavailable after a failure.
const DefaultCooldown = 60 * time.Second

// ServiceState is the availability of a single provider.
type ServiceState int

const (
	// StateAvailable means calls to the provider are allowed.
	StateAvailable ServiceState = iota
	// StateUnavailable means the provider failed recently and is skipped
	// until its cool-down elapses.
	StateUnavailable
)

func (s ServiceState) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ServiceStatusConfig controls circuit breaker behavior.
type ServiceStatusConfig struct {
	// Cooldown is the default unavailability window. Default: 60s.
	Cooldown time.Duration

	// OnStateChange is called when a provider transitions between states.
	// It runs while the status lock is held and must not call back into
	// ServiceStatus.
	OnStateChange func(provider string, from, to ServiceState)
}

// DefaultServiceStatusConfig returns sensible defaults.
func DefaultServiceStatusConfig() ServiceStatusConfig {
	return ServiceStatusConfig{Cooldown: DefaultCooldown}
}

type statusEntry struct {
	available        bool
	unavailableUntil time.Time
}

// StatusEntry is a point-in-time view of one provider's availability.
type StatusEntry struct {
	Provider         string
	Available        bool
	UnavailableUntil time.Time
}

// ServiceStatus tracks per-provider availability with timed auto-recovery.
// There is no half-open probing: the first IsAvailable check after the
// cool-down reopens the provider. Safe for concurrent use.
type ServiceStatus struct {
	cfg     ServiceStatusConfig
	mu      sync.Mutex
	entries map[string]*statusEntry

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewServiceStatus creates an empty status registry. Every provider starts
// available.
func NewServiceStatus(cfg ServiceStatusConfig) *ServiceStatus {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &ServiceStatus{
		cfg:     cfg,
		entries: make(map[string]*statusEntry),
		nowFunc: time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ServiceStatus) WithClock(now func() time.Time) *ServiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
	return s
}

// MarkUnavailable opens the breaker for provider. A non-positive d uses the
// configured cool-down.
func (s *ServiceStatus) MarkUnavailable(provider string, d time.Duration) {
	if d <= 0 {
		d = s.cfg.Cooldown
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[provider]
	wasAvailable := !ok || e.available
	if !ok {
		e = &statusEntry{}
		s.entries[provider] = e
	}
	e.available = false
	e.unavailableUntil = s.nowFunc().Add(d)

	if wasAvailable {
		s.notify(provider, StateAvailable, StateUnavailable)
	}
}

// IsAvailable reports whether provider may be called. A provider whose
// cool-down has passed is healed and its entry cleared.
func (s *ServiceStatus) IsAvailable(provider string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[provider]
	if !ok || e.available {
		return true
	}
	if !s.nowFunc().Before(e.unavailableUntil) {
		delete(s.entries, provider)
		s.notify(provider, StateUnavailable, StateAvailable)
		return true
	}
	return false
}

// MarkAvailable clears any recorded failure for provider.
func (s *ServiceStatus) MarkAvailable(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[provider]
	if !ok {
		return
	}
	delete(s.entries, provider)
	if !e.available {
		s.notify(provider, StateUnavailable, StateAvailable)
	}
}

// State returns the current state without healing expired entries.
func (s *ServiceStatus) State(provider string) ServiceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[provider]
	if !ok || e.available || !s.nowFunc().Before(e.unavailableUntil) {
		return StateAvailable
	}
	return StateUnavailable
}

// Snapshot returns the providers currently marked unavailable, sorted by name.
func (s *ServiceStatus) Snapshot() []StatusEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	out := make([]StatusEntry, 0, len(s.entries))
	for name, e := range s.entries {
		out = append(out, StatusEntry{
			Provider:         name,
			Available:        e.available || !now.Before(e.unavailableUntil),
			UnavailableUntil: e.unavailableUntil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Reset clears every entry. Useful for testing or manual recovery.
func (s *ServiceStatus) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*statusEntry)
}

func (s *ServiceStatus) notify(provider string, from, to ServiceState) {
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(provider, from, to)
	}
}
