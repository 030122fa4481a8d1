package model

import "time"

// SourceNone is the result source when no provider produced a usable value.
const SourceNone = "none"

// ProviderAttempt records one successful provider call within a cascade.
// Failed calls are not recorded as attempts.
type ProviderAttempt struct {
	Provider             string        `json:"provider"`
	RawConfidence        float64       `json:"raw_confidence"`
	NormalizedConfidence float64       `json:"normalized_confidence"`
	Email                string        `json:"email,omitempty"`
	Phone                string        `json:"phone,omitempty"`
	Cost                 float64       `json:"cost"`
	Succeeded            bool          `json:"succeeded"`
	Error                string        `json:"error,omitempty"`
	Duration             time.Duration `json:"duration_ns"`
}

// HasValue reports whether the attempt returned an email or a phone.
func (a ProviderAttempt) HasValue() bool {
	return a.Email != "" || a.Phone != ""
}

// EmailReliability summarizes the verification outcome of an email.
type EmailReliability string

const (
	ReliabilityExcellent EmailReliability = "excellent"
	ReliabilityGood      EmailReliability = "good"
	ReliabilityFair      EmailReliability = "fair"
	ReliabilityPoor      EmailReliability = "poor"
	ReliabilityUnknown   EmailReliability = "unknown"
	ReliabilityNoEmail   EmailReliability = "no_email"
)

// EnrichmentResult is the outcome of one cascade run.
type EnrichmentResult struct {
	ID             string            `json:"id"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Confidence     float64           `json:"confidence"`
	Source         string            `json:"source"`
	Attempts       []ProviderAttempt `json:"providers_tried"`
	TotalCost      float64           `json:"total_cost"`
	ProcessingTime time.Duration     `json:"processing_time_ns"`

	EmailVerified     bool                     `json:"email_verified"`
	PhoneVerified     bool                     `json:"phone_verified"`
	EmailVerification *EmailVerificationResult `json:"email_verification_details,omitempty"`
	PhoneVerification *PhoneVerificationResult `json:"phone_verification_details,omitempty"`

	LeadScore        int              `json:"lead_score"`
	EmailReliability EmailReliability `json:"email_reliability"`

	// Cancelled is set when the run stopped early on cancellation or timeout.
	Cancelled bool      `json:"cancelled,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Found reports whether the cascade produced an email or a phone.
func (r *EnrichmentResult) Found() bool {
	return r != nil && (r.Email != "" || r.Phone != "")
}

// ProviderNames returns the providers that produced an attempt, in order.
func (r *EnrichmentResult) ProviderNames() []string {
	names := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		names = append(names, a.Provider)
	}
	return names
}

// EmailVerificationResult is the outcome of verifying one email address.
type EmailVerificationResult struct {
	IsValid           bool   `json:"is_valid"`
	Score             int    `json:"score"`
	VerificationLevel string `json:"verification_level"`
	IsDisposable      bool   `json:"is_disposable"`
	IsRoleBased       bool   `json:"is_role_based"`
	IsCatchall        bool   `json:"is_catchall"`
	Deliverable       bool   `json:"deliverable"`
	Reason            string `json:"reason,omitempty"`
}

// PhoneVerificationResult is the outcome of verifying one phone number.
type PhoneVerificationResult struct {
	IsValid                bool   `json:"is_valid"`
	Score                  int    `json:"score"`
	IsMobile               bool   `json:"is_mobile"`
	IsLandline             bool   `json:"is_landline"`
	IsVoIP                 bool   `json:"is_voip"`
	Country                string `json:"country,omitempty"`
	CarrierName            string `json:"carrier_name,omitempty"`
	Region                 string `json:"region,omitempty"`
	FormattedInternational string `json:"formatted_international,omitempty"`
	Reason                 string `json:"reason,omitempty"`
}
