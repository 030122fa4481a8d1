package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/verify"
)

var verifyRegion string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an email address or phone number",
}

var verifyEmailCmd = &cobra.Command{
	Use:   "email <address>",
	Short: "Verify an email address (syntax, MX, optional mailbox API)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newVerifier().VerifyEmail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		zap.L().Debug("email verified", zap.String("email", args[0]), zap.Int("score", res.Score))
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var verifyPhoneCmd = &cobra.Command{
	Use:   "phone <number>",
	Short: "Verify a phone number and classify its line type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region := verifyRegion
		if region == "" {
			region = cfg.Verify.DefaultRegion
		}
		res, err := verify.NewPhoneVerifier(region).Verify(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrapf(err, "verify: phone %s", args[0])
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	verifyPhoneCmd.Flags().StringVar(&verifyRegion, "region", "", "default region for numbers without a country code (default verify.default_region)")
	verifyCmd.AddCommand(verifyEmailCmd, verifyPhoneCmd)
	rootCmd.AddCommand(verifyCmd)
}
