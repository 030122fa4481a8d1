package store

import (
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

func testContact(first string) model.ContactInput {
	return model.ContactInput{
		FirstName:     first,
		LastName:      "Doe",
		Company:       "Acme",
		CompanyDomain: "acme.com",
	}
}

func testResult(id, source string, cost float64, createdAt time.Time) *model.EnrichmentResult {
	r := &model.EnrichmentResult{
		ID:               id,
		Source:           source,
		TotalCost:        cost,
		LeadScore:        20,
		EmailReliability: model.ReliabilityNoEmail,
		Attempts:         []model.ProviderAttempt{},
		CreatedAt:        createdAt,
	}
	if source != model.SourceNone {
		r.Email = "jane@acme.com"
		r.Confidence = 0.92
		r.LeadScore = 65
		r.EmailReliability = model.ReliabilityGood
		r.Attempts = []model.ProviderAttempt{{
			Provider:             source,
			RawConfidence:        92,
			NormalizedConfidence: 0.92,
			Email:                "jane@acme.com",
			Cost:                 cost,
			Succeeded:            true,
		}}
	}
	return r
}
