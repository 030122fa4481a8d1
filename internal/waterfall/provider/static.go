package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Static is an in-process provider that answers from a fixed table keyed by
// lowercased company domain (or company name). It backs offline runs.
type Static struct {
	name    string
	entries map[string]StaticEntry
}

// StaticEntry is one canned answer.
type StaticEntry struct {
	Email      string  `json:"email,omitempty" yaml:"email"`
	Phone      string  `json:"phone,omitempty" yaml:"phone"`
	Confidence float64 `json:"confidence" yaml:"confidence"` // 0-100, like the vendors
}

// NewStatic creates a static provider named name.
func NewStatic(name string, entries map[string]StaticEntry) *Static {
	norm := make(map[string]StaticEntry, len(entries))
	for k, v := range entries {
		norm[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Static{name: name, entries: norm}
}

// Name implements Provider.
func (p *Static) Name() string { return p.name }

// Call implements Provider.
func (p *Static) Call(ctx context.Context, contact model.ContactInput) (*RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := p.entries[contact.Domain()]
	if !ok {
		e, ok = p.entries[strings.ToLower(strings.TrimSpace(contact.Company))]
	}
	if !ok {
		return &RawResult{Provider: p.name, Payload: []byte(`{"confidence":0}`)}, nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &RawResult{Provider: p.name, Email: e.Email, Phone: e.Phone, Payload: payload}, nil
}
