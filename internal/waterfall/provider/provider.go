// Package provider defines the capability interface shared by every contact
// data provider, plus the HTTP adapters for each vendor.
package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// ErrNotApplicable is returned when a provider cannot look up a contact
// with the identifiers it was given (e.g., no profile URL). No network call
// is made, nothing is charged and the provider stays available.
var ErrNotApplicable = eris.New("provider not applicable to contact")

// RawResult is the normalized output of one provider call. Payload keeps
// the vendor's JSON so confidence can be read according to its own shape.
type RawResult struct {
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Payload  []byte `json:"payload,omitempty"`
}

// HasValue reports whether the call returned an email or a phone.
func (r *RawResult) HasValue() bool {
	return r != nil && (r.Email != "" || r.Phone != "")
}

// Provider is one third-party contact data source.
type Provider interface {
	// Name returns the provider identifier (matches the service order).
	Name() string
	// Call looks up contact. A call that reaches the vendor and finds no
	// match returns an empty RawResult and a nil error.
	Call(ctx context.Context, contact model.ContactInput) (*RawResult, error)
}

// Registry manages available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding ps.
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
	}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// Register adds a provider to the registry, replacing any with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
