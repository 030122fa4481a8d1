package waterfall

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/scorer"
)

// DefaultMaxConcurrent is the number of contacts enriched at once.
const DefaultMaxConcurrent = 5

// EnrichBatch enriches contacts with up to maxConcurrent cascades in flight.
// Results are index-aligned with contacts. A contact that fails gets an
// empty result; the batch itself never fails.
func EnrichBatch(ctx context.Context, enr Enricher, contacts []model.ContactInput, maxConcurrent int) []*model.EnrichmentResult {
	results := make([]*model.EnrichmentResult, len(contacts))
	if len(contacts) == 0 {
		return results
	}
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}

	zap.L().Info("waterfall: processing batch",
		zap.Int("contacts", len(contacts)),
		zap.Int("concurrency", maxConcurrent),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	var found, failed atomic.Int64

	for i, contact := range contacts {
		g.Go(func() error {
			result, err := enr.Enrich(gctx, contact)
			if err != nil {
				failed.Add(1)
				zap.L().Error("waterfall: enrichment failed",
					zap.Int("row", i),
					zap.String("contact", contact.FullName()),
					zap.Error(err),
				)
				result = emptyResult(contact)
			}
			if result.Found() {
				found.Add(1)
			}
			results[i] = result
			return nil // don't abort batch on individual failure
		})
	}
	_ = g.Wait()

	zap.L().Info("waterfall: batch complete",
		zap.Int("contacts", len(contacts)),
		zap.Int64("found", found.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}

// EnrichBatch runs the executor over contacts. See EnrichBatch.
func (e *Executor) EnrichBatch(ctx context.Context, contacts []model.ContactInput, maxConcurrent int) []*model.EnrichmentResult {
	return EnrichBatch(ctx, e, contacts, maxConcurrent)
}

func emptyResult(contact model.ContactInput) *model.EnrichmentResult {
	r := &model.EnrichmentResult{
		ID:        uuid.NewString(),
		Source:    model.SourceNone,
		Attempts:  []model.ProviderAttempt{},
		CreatedAt: time.Now().UTC(),
	}
	scorer.Apply(contact, r)
	return r
}

// BatchSummary aggregates a batch's results.
type BatchSummary struct {
	Contacts     int            `json:"contacts"`
	Found        int            `json:"found"`
	NotFound     int            `json:"not_found"`
	WithEmail    int            `json:"with_email"`
	WithPhone    int            `json:"with_phone"`
	Cancelled    int            `json:"cancelled"`
	Cached       int            `json:"cached"`
	TotalCost    float64        `json:"total_cost"`
	AvgLeadScore float64        `json:"avg_lead_score"`
	Wins         map[string]int `json:"wins"`     // provider -> results sourced
	Attempts     map[string]int `json:"attempts"` // provider -> charged calls
}

// Summarize computes the summary of results. Nil entries are skipped.
func Summarize(results []*model.EnrichmentResult) BatchSummary {
	s := BatchSummary{
		Wins:     make(map[string]int),
		Attempts: make(map[string]int),
	}
	var leadTotal int
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Contacts++
		if r.Found() {
			s.Found++
			s.Wins[r.Source]++
		} else {
			s.NotFound++
		}
		if r.Email != "" {
			s.WithEmail++
		}
		if r.Phone != "" {
			s.WithPhone++
		}
		if r.Cancelled {
			s.Cancelled++
		}
		if r.Cached {
			s.Cached++
		}
		s.TotalCost += r.TotalCost
		leadTotal += r.LeadScore
		for _, a := range r.Attempts {
			s.Attempts[a.Provider]++
		}
	}
	if s.Contacts > 0 {
		s.AvgLeadScore = float64(leadTotal) / float64(s.Contacts)
	}
	return s
}

// Providers returns the provider names present in the summary, sorted.
func (s BatchSummary) Providers() []string {
	names := make([]string, 0, len(s.Attempts))
	for name := range s.Attempts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
