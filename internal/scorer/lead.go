// Package scorer derives lead quality labels from an enrichment result.
package scorer

import (
	"math"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

// LeadInput holds every field the lead score depends on. Verification scores
// are fractions in [0,1].
type LeadInput struct {
	Email                string
	Phone                string
	EmailVerified        bool
	PhoneVerified        bool
	EmailScore           float64
	PhoneScore           float64
	Company              string
	Position             string
	ProfileURL           string
	EnrichmentConfidence float64
}

// LeadScore returns the 0-100 quality score of an enriched contact.
func LeadScore(in LeadInput) int {
	score := 20

	if in.Email != "" {
		score += 20
		switch {
		case in.EmailVerified:
			score += tier(in.EmailScore, 35, 30, 25, 20)
		case in.EmailScore > 0:
			score += int(math.Floor(in.EmailScore * 15))
		}
	}

	if in.Phone != "" {
		score += 15
		switch {
		case in.PhoneVerified:
			score += tier(in.PhoneScore, 30, 25, 20, 20)
		case in.PhoneScore > 0:
			score += int(math.Floor(in.PhoneScore * 10))
		}
	}

	if known(in.Company) {
		score += 10
	}
	if known(in.Position) {
		score += 10
	}
	if in.ProfileURL != "" {
		score += 10
	}

	switch {
	case in.EnrichmentConfidence >= 0.8:
		score += 10
	case in.EnrichmentConfidence >= 0.6:
		score += 5
	}

	return min(score, 100)
}

// tier picks a bonus by verified score: >=0.9, >=0.7, >=0.5, below.
func tier(s float64, excellent, good, fair, rest int) int {
	switch {
	case s >= 0.9:
		return excellent
	case s >= 0.7:
		return good
	case s >= 0.5:
		return fair
	default:
		return rest
	}
}

func known(s string) bool {
	return s != "" && strings.ToLower(s) != "unknown"
}

// ReliabilityInput holds the fields email reliability depends on. Score is a
// fraction in [0,1].
type ReliabilityInput struct {
	Email      string
	Verified   bool
	Score      float64
	Disposable bool
	RoleBased  bool
	Catchall   bool
}

// EmailReliability categorizes an email's verification outcome.
func EmailReliability(in ReliabilityInput) model.EmailReliability {
	switch {
	case in.Email == "":
		return model.ReliabilityNoEmail
	case in.Disposable:
		return model.ReliabilityPoor
	case !in.Verified:
		return model.ReliabilityUnknown
	case in.Score >= 0.9 && !in.RoleBased && !in.Catchall:
		return model.ReliabilityExcellent
	case in.Score >= 0.7:
		if in.RoleBased {
			return model.ReliabilityFair
		}
		return model.ReliabilityGood
	case in.Score >= 0.5:
		return model.ReliabilityFair
	default:
		return model.ReliabilityPoor
	}
}

// Apply fills LeadScore and EmailReliability on result for contact.
func Apply(contact model.ContactInput, result *model.EnrichmentResult) {
	lead := LeadInput{
		Email:                result.Email,
		Phone:                result.Phone,
		EmailVerified:        result.EmailVerified,
		PhoneVerified:        result.PhoneVerified,
		Company:              contact.Company,
		Position:             contact.Position,
		ProfileURL:           contact.ProfileURL,
		EnrichmentConfidence: result.Confidence,
	}
	rel := ReliabilityInput{
		Email:    result.Email,
		Verified: result.EmailVerified,
	}
	if v := result.EmailVerification; v != nil {
		lead.EmailScore = float64(v.Score) / 100
		rel.Score = lead.EmailScore
		rel.Disposable = v.IsDisposable
		rel.RoleBased = v.IsRoleBased
		rel.Catchall = v.IsCatchall
	}
	if v := result.PhoneVerification; v != nil {
		lead.PhoneScore = float64(v.Score) / 100
	}

	result.LeadScore = LeadScore(lead)
	result.EmailReliability = EmailReliability(rel)
}
