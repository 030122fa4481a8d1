package verify

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Service bundles the email and phone verifiers.
type Service struct {
	email *EmailVerifier
	phone *PhoneVerifier
}

// NewService creates a Service. Nil verifiers get defaults.
func NewService(email *EmailVerifier, phone *PhoneVerifier) *Service {
	if email == nil {
		email = NewEmailVerifier()
	}
	if phone == nil {
		phone = NewPhoneVerifier("")
	}
	return &Service{email: email, phone: phone}
}

// VerifyEmail verifies one address.
func (s *Service) VerifyEmail(ctx context.Context, email string) (*model.EmailVerificationResult, error) {
	res, err := s.email.Verify(ctx, email)
	if err != nil {
		return nil, eris.Wrapf(err, "verify: email %s", email)
	}
	return res, nil
}

// VerifyPhone verifies one number.
func (s *Service) VerifyPhone(ctx context.Context, phone string) (*model.PhoneVerificationResult, error) {
	res, err := s.phone.Verify(ctx, phone)
	if err != nil {
		return nil, eris.Wrapf(err, "verify: phone %s", phone)
	}
	return res, nil
}

// FailedEmail is the degraded result of an email verification that could not run.
func FailedEmail(err error) *model.EmailVerificationResult {
	return &model.EmailVerificationResult{Reason: "verification failed: " + err.Error()}
}

// FailedPhone is the degraded result of a phone verification that could not run.
func FailedPhone(err error) *model.PhoneVerificationResult {
	return &model.PhoneVerificationResult{Reason: "verification failed: " + err.Error()}
}
