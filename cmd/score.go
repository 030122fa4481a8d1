package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/scorer"
)

var (
	scoreLead        scorer.LeadInput
	scoreDisposable  bool
	scoreRoleBased   bool
	scoreCatchall    bool
	scoreEmailPoints int
	scorePhonePoints int
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the lead score and email reliability of a contact",
	Long: `Scores a contact from already known fields, without calling any provider.
Verification scores are given on the 0-100 scale the verifiers report.

Examples:
  enrich-cli score --email jane@acme.com --email-verified --email-score 95 --company Acme
  enrich-cli score --phone "+1 650 253 0000" --phone-verified --phone-score 85`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if scoreEmailPoints < 0 || scoreEmailPoints > 100 || scorePhonePoints < 0 || scorePhonePoints > 100 {
			return eris.New("score: verification scores must be within [0,100]")
		}
		if scoreLead.EnrichmentConfidence < 0 || scoreLead.EnrichmentConfidence > 1 {
			return eris.New("score: --confidence must be within [0,1]")
		}
		in := scoreLead
		in.EmailScore = float64(scoreEmailPoints) / 100
		in.PhoneScore = float64(scorePhonePoints) / 100

		out := struct {
			LeadScore        int                    `json:"lead_score"`
			EmailReliability model.EmailReliability `json:"email_reliability"`
		}{
			LeadScore: scorer.LeadScore(in),
			EmailReliability: scorer.EmailReliability(scorer.ReliabilityInput{
				Email:      in.Email,
				Verified:   in.EmailVerified,
				Score:      in.EmailScore,
				Disposable: scoreDisposable,
				RoleBased:  scoreRoleBased,
				Catchall:   scoreCatchall,
			}),
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreLead.Email, "email", "", "email address")
	f.StringVar(&scoreLead.Phone, "phone", "", "phone number")
	f.BoolVar(&scoreLead.EmailVerified, "email-verified", false, "the email passed verification")
	f.BoolVar(&scoreLead.PhoneVerified, "phone-verified", false, "the phone passed verification")
	f.IntVar(&scoreEmailPoints, "email-score", 0, "email verification score (0-100)")
	f.IntVar(&scorePhonePoints, "phone-score", 0, "phone verification score (0-100)")
	f.StringVar(&scoreLead.Company, "company", "", "company name")
	f.StringVar(&scoreLead.Position, "position", "", "job title")
	f.StringVar(&scoreLead.ProfileURL, "profile-url", "", "LinkedIn profile URL")
	f.Float64Var(&scoreLead.EnrichmentConfidence, "confidence", 0, "enrichment confidence (0-1)")
	f.BoolVar(&scoreDisposable, "disposable", false, "the email domain is disposable")
	f.BoolVar(&scoreRoleBased, "role-based", false, "the email is a role address")
	f.BoolVar(&scoreCatchall, "catchall", false, "the email domain accepts all mail")
	rootCmd.AddCommand(scoreCmd)
}
