// Package store persists enrichment results. The engine never writes to
// storage itself; callers hand finished results to a Store.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// ErrNotFound is returned when a result ID does not exist.
var ErrNotFound = eris.New("store: result not found")

// Record is a persisted enrichment: the input contact and its result.
type Record struct {
	Contact model.ContactInput     `json:"contact"`
	Result  model.EnrichmentResult `json:"result"`
}

// ResultFilter specifies criteria for listing results.
type ResultFilter struct {
	Source    string    `json:"source,omitempty"`
	FoundOnly bool      `json:"found_only,omitempty"`
	Since     time.Time `json:"since,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for enrichment results.
type Store interface {
	SaveResult(ctx context.Context, contact model.ContactInput, result *model.EnrichmentResult) error
	// SaveResults stores index-aligned contacts and results in bulk. Nil
	// results are skipped.
	SaveResults(ctx context.Context, contacts []model.ContactInput, results []*model.EnrichmentResult) (int64, error)
	GetResult(ctx context.Context, id string) (*Record, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]Record, error)
	// SpendSince sums the provider cost of results created at or after since.
	SpendSince(ctx context.Context, since time.Time) (float64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// resultColumns is the column order shared by inserts and COPY.
var resultColumns = []string{
	"id", "contact_key", "contact", "email", "phone", "confidence", "source",
	"total_cost", "lead_score", "email_reliability", "cancelled", "result", "created_at",
}

const defaultListLimit = 100

// resultRow flattens a record into resultColumns order. createdAt is passed
// through encodeTime so each backend controls its time representation.
func resultRow(contact model.ContactInput, result *model.EnrichmentResult, encodeTime func(time.Time) any) ([]any, error) {
	if result == nil {
		return nil, eris.New("store: nil result")
	}
	if result.ID == "" {
		return nil, eris.New("store: result has no id")
	}
	contactJSON, err := json.Marshal(contact)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal contact")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal result")
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []any{
		result.ID,
		contact.Key(),
		contactJSON,
		result.Email,
		result.Phone,
		result.Confidence,
		result.Source,
		result.TotalCost,
		result.LeadScore,
		string(result.EmailReliability),
		result.Cancelled,
		resultJSON,
		encodeTime(createdAt.UTC()),
	}, nil
}

func decodeRecord(contactJSON, resultJSON []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(contactJSON, &rec.Contact); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal contact")
	}
	if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal result")
	}
	return &rec, nil
}
