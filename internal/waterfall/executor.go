// Package waterfall runs the cost-ordered provider cascade that enriches a
// contact with an email and phone number.
package waterfall

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/cost"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/scorer"
	"github.com/sells-group/enrich-cli/internal/verify"
	"github.com/sells-group/enrich-cli/internal/waterfall/provider"
)

// Enricher enriches a single contact.
type Enricher interface {
	Enrich(ctx context.Context, contact model.ContactInput) (*model.EnrichmentResult, error)
}

// Verifier checks the candidate email and phone of a finished cascade.
type Verifier interface {
	VerifyEmail(ctx context.Context, email string) (*model.EmailVerificationResult, error)
	VerifyPhone(ctx context.Context, phone string) (*model.PhoneVerificationResult, error)
}

// Executor runs the waterfall cascade for contacts. It is safe for
// concurrent use; every cascade owns its own result.
type Executor struct {
	settings   Settings
	order      []ProviderDescriptor
	registry   *provider.Registry
	status     *resilience.ServiceStatus
	limiter    *resilience.RateLimiter
	retry      resilience.RetryConfig
	normalizer *Normalizer
	verifier   Verifier
	costs      cost.Table
	now        func() time.Time // injectable for testing
}

// Option configures an Executor.
type Option func(*Executor)

// WithVerifier enables post-cascade verification.
func WithVerifier(v Verifier) Option {
	return func(e *Executor) {
		e.verifier = v
	}
}

// WithRetryConfig overrides the retry policy of provider calls.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(e *Executor) {
		e.retry = cfg
	}
}

// WithServiceStatus shares a circuit breaker between executors.
func WithServiceStatus(s *resilience.ServiceStatus) Option {
	return func(e *Executor) {
		e.status = s
	}
}

// WithRateLimiter shares a rate limiter between executors.
func WithRateLimiter(rl *resilience.RateLimiter) Option {
	return func(e *Executor) {
		e.limiter = rl
	}
}

// WithNormalizer replaces the confidence normalization table.
func WithNormalizer(n *Normalizer) Option {
	return func(e *Executor) {
		e.normalizer = n
	}
}

// WithClock sets the time source used for durations and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// NewExecutor creates an executor over the service order in cfg. Every
// provider in the order must be registered.
func NewExecutor(cfg *Config, registry *provider.Registry, opts ...Option) (*Executor, error) {
	if cfg == nil {
		return nil, eris.New("waterfall: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, eris.New("waterfall: nil provider registry")
	}
	order := cfg.ServiceOrder()
	for _, d := range order {
		if registry.Get(d.Name) == nil {
			return nil, eris.Errorf("waterfall: provider %s in service order is not registered", d.Name)
		}
	}

	e := &Executor{
		settings:   cfg.Settings,
		order:      order,
		registry:   registry,
		retry:      resilience.DefaultRetryConfig(),
		normalizer: NewNormalizer(nil),
		costs:      cost.Table(cfg.Costs()),
		now:        time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.status == nil {
		e.status = resilience.NewServiceStatus(resilience.DefaultServiceStatusConfig())
	}
	if e.limiter == nil {
		e.limiter = resilience.NewRateLimiter(cfg.RateLimits())
	}
	if e.settings.ProviderTimeout <= 0 {
		e.settings.ProviderTimeout = provider.DefaultTimeout
	}
	return e, nil
}

// Settings returns the cascade settings.
func (e *Executor) Settings() Settings { return e.settings }

// ServiceOrder returns the providers in the order they are tried.
func (e *Executor) ServiceOrder() []ProviderDescriptor {
	out := make([]ProviderDescriptor, len(e.order))
	copy(out, e.order)
	return out
}

// Status returns the circuit breaker shared by this executor's cascades.
func (e *Executor) Status() *resilience.ServiceStatus { return e.status }

// Enrich runs the cascade for one contact. Provider failures never surface
// as errors: the result simply carries whatever was found. The only error is
// a contact with no identifying field at all.
func (e *Executor) Enrich(ctx context.Context, contact model.ContactInput) (*model.EnrichmentResult, error) {
	if isEmpty(contact) {
		return nil, eris.New("waterfall: contact has no identifying fields")
	}

	start := e.now()
	result := &model.EnrichmentResult{
		ID:        uuid.NewString(),
		Source:    model.SourceNone,
		Attempts:  []model.ProviderAttempt{},
		CreatedAt: start.UTC(),
	}
	log := zap.L().With(
		zap.String("run_id", result.ID),
		zap.String("contact", contact.FullName()),
		zap.String("company", contact.Company),
	)

	if e.settings.HardTimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.HardTimeLimit)
		defer cancel()
	}
	if e.settings.SoftTimeLimit > 0 {
		soft := time.AfterFunc(e.settings.SoftTimeLimit, func() {
			log.Warn("waterfall: cascade exceeded soft time limit",
				zap.Duration("soft_limit", e.settings.SoftTimeLimit),
			)
		})
		defer soft.Stop()
	}

	ledger := cost.NewLedger(e.costs)
	best := -1 // index into result.Attempts

	for _, desc := range e.order {
		if len(result.Attempts) >= e.settings.MaxProvidersPerContact {
			break
		}
		if err := ctx.Err(); err != nil {
			result.Cancelled = true
			log.Warn("waterfall: cascade abandoned", zap.String("error_class", resilience.Classify(err)), zap.Error(err))
			break
		}
		if !e.status.IsAvailable(desc.Name) {
			log.Debug("waterfall: skipping unavailable provider", zap.String("provider", desc.Name))
			continue
		}

		attempt, err := e.attempt(ctx, desc, contact)
		if errors.Is(err, provider.ErrNotApplicable) {
			log.Debug("waterfall: provider not applicable", zap.String("provider", desc.Name))
			continue
		}
		if resilience.IsRateLimited(err) {
			log.Debug("waterfall: provider rate limit outlasts cascade deadline", zap.String("provider", desc.Name))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				log.Warn("waterfall: cascade abandoned during provider call",
					zap.String("provider", desc.Name),
					zap.Error(ctx.Err()),
				)
				break
			}
			e.status.MarkUnavailable(desc.Name, 0)
			log.Warn("waterfall: provider failed",
				zap.String("provider", desc.Name),
				zap.String("error_class", resilience.Classify(err)),
				zap.Error(err),
			)
			continue
		}

		e.status.MarkAvailable(desc.Name)
		attempt.Cost = ledger.Charge(desc.Name)
		result.Attempts = append(result.Attempts, attempt)

		log.Debug("waterfall: provider attempt",
			zap.String("provider", desc.Name),
			zap.Int("attempt", len(result.Attempts)),
			zap.Float64("confidence", attempt.NormalizedConfidence),
			zap.Float64("cost", attempt.Cost),
		)

		if attempt.HasValue() && attempt.NormalizedConfidence >= e.floor(attempt) &&
			(best < 0 || attempt.NormalizedConfidence > result.Attempts[best].NormalizedConfidence) {
			best = len(result.Attempts) - 1
		}
		if best >= 0 && e.satisfied(result.Attempts[best]) {
			break
		}
	}

	if best >= 0 {
		winner := result.Attempts[best]
		result.Email = winner.Email
		result.Phone = winner.Phone
		result.Confidence = winner.NormalizedConfidence
		result.Source = winner.Provider
	}
	result.TotalCost = ledger.Total()

	if ctx.Err() == nil {
		e.verify(ctx, result, log)
	}
	scorer.Apply(contact, result)
	result.ProcessingTime = e.now().Sub(start)

	log.Info("waterfall: cascade complete",
		zap.String("source", result.Source),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("cost", result.TotalCost),
		zap.Int("attempts", len(result.Attempts)),
		zap.Int("lead_score", result.LeadScore),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

// attempt calls one provider through the rate limiter and retry policy and
// normalizes its answer. The call itself ignores cancellation of ctx so an
// in-flight request is never cut off; waits and backoff honor it.
func (e *Executor) attempt(ctx context.Context, desc ProviderDescriptor, contact model.ContactInput) (model.ProviderAttempt, error) {
	p := e.registry.Get(desc.Name)
	if p == nil {
		return model.ProviderAttempt{}, eris.Errorf("waterfall: provider %s is not registered", desc.Name)
	}

	rc := e.retry
	rc.ShouldRetry = func(err error) bool {
		return !errors.Is(err, provider.ErrNotApplicable) && resilience.Retryable(err)
	}
	if rc.OnRetry == nil {
		rc.OnRetry = resilience.RetryLogger(desc.Name)
	}

	started := e.now()
	raw, err := resilience.DoVal(ctx, rc, func(ctx context.Context) (*provider.RawResult, error) {
		if err := e.limiter.Acquire(ctx, desc.Name); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.settings.ProviderTimeout)
		defer cancel()
		return p.Call(callCtx, contact)
	})
	if err != nil {
		return model.ProviderAttempt{}, err
	}

	var r provider.RawResult
	if raw != nil {
		r = *raw
	}
	r.Provider = desc.Name

	rawConf, conf, err := e.normalizer.Normalize(&r)
	if err != nil {
		return model.ProviderAttempt{}, err
	}
	return model.ProviderAttempt{
		Provider:             desc.Name,
		RawConfidence:        rawConf,
		NormalizedConfidence: conf,
		Email:                r.Email,
		Phone:                r.Phone,
		Succeeded:            true,
		Duration:             e.now().Sub(started),
	}, nil
}

// floor is the minimum confidence for an attempt to count as found.
func (e *Executor) floor(a model.ProviderAttempt) float64 {
	if a.Email == "" && a.Phone != "" {
		return e.settings.PhoneMinimumConfidence
	}
	return e.settings.MinimumConfidence
}

// satisfied reports whether best is good enough to stop the cascade.
func (e *Executor) satisfied(best model.ProviderAttempt) bool {
	if best.NormalizedConfidence >= e.settings.ExcellentConfidence {
		return true
	}
	if !e.settings.StopOnHighConfidence {
		return false
	}
	high := e.settings.HighConfidence
	if best.Email == "" {
		high = e.settings.PhoneHighConfidence
	}
	return best.NormalizedConfidence >= high
}

// verify fills the verification fields. Failures degrade to unverified.
func (e *Executor) verify(ctx context.Context, result *model.EnrichmentResult, log *zap.Logger) {
	if e.verifier == nil {
		return
	}
	if e.settings.EnableEmailVerification && result.Email != "" {
		v, err := e.verifier.VerifyEmail(ctx, result.Email)
		if err == nil && v == nil {
			err = eris.New("waterfall: verifier returned no result")
		}
		if err != nil {
			log.Warn("waterfall: email verification failed", zap.Error(err))
			v = verify.FailedEmail(err)
		}
		result.EmailVerification = v
		result.EmailVerified = v.IsValid
	}
	if e.settings.EnablePhoneVerification && result.Phone != "" {
		v, err := e.verifier.VerifyPhone(ctx, result.Phone)
		if err == nil && v == nil {
			err = eris.New("waterfall: verifier returned no result")
		}
		if err != nil {
			log.Warn("waterfall: phone verification failed", zap.Error(err))
			v = verify.FailedPhone(err)
		}
		result.PhoneVerification = v
		result.PhoneVerified = v.IsValid
	}
}

func isEmpty(c model.ContactInput) bool {
	return strings.TrimSpace(c.FirstName+c.LastName+c.Company+c.CompanyDomain+c.ProfileURL) == ""
}
