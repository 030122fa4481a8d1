package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/scorer"
)

// Inner is the enricher being cached. *waterfall.Executor satisfies it.
type Inner interface {
	Enrich(ctx context.Context, contact model.ContactInput) (*model.EnrichmentResult, error)
}

// Enricher serves results from the cache and falls back to the inner
// enricher on a miss. Cache failures are logged and never fail a lookup.
type Enricher struct {
	inner Inner
	cache *Cache
	now   func() time.Time
}

// NewEnricher wraps inner with cache.
func NewEnricher(inner Inner, cache *Cache) *Enricher {
	return &Enricher{inner: inner, cache: cache, now: time.Now}
}

func (e *Enricher) Enrich(ctx context.Context, contact model.ContactInput) (*model.EnrichmentResult, error) {
	start := e.now()

	cached, err := e.cache.Get(ctx, contact)
	if err != nil {
		zap.L().Warn("cache: lookup failed", zap.String("contact", contact.FullName()), zap.Error(err))
	}
	if cached != nil {
		zap.L().Debug("cache: hit", zap.String("contact", contact.FullName()), zap.String("source", cached.Source))
		return fromCache(contact, cached, start, e.now().Sub(start)), nil
	}

	result, err := e.inner.Enrich(ctx, contact)
	if err != nil {
		return nil, err
	}
	// Partial runs and runs where no provider answered would pin a worse
	// answer for the whole TTL.
	if result.Cancelled || (!result.Found() && len(result.Attempts) == 0) {
		return result, nil
	}
	if err := e.cache.Set(ctx, contact, result, 0); err != nil {
		zap.L().Warn("cache: store failed", zap.String("contact", contact.FullName()), zap.Error(err))
	}
	return result, nil
}

// fromCache turns a stored result into this run's result. No provider was
// called, so the run carries no attempts and no cost. The lead score is
// recomputed because it depends on contact fields outside the cache key.
func fromCache(contact model.ContactInput, cached *model.EnrichmentResult, start time.Time, elapsed time.Duration) *model.EnrichmentResult {
	r := *cached
	r.ID = uuid.NewString()
	r.Attempts = []model.ProviderAttempt{}
	r.TotalCost = 0
	r.Cached = true
	r.CreatedAt = start.UTC()
	r.ProcessingTime = elapsed
	scorer.Apply(contact, &r)
	return &r
}
