package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
)

var (
	enrichContact model.ContactInput
	enrichSave    bool
	enrichCache   bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single contact",
	Long: `Runs the provider cascade for one contact and prints the result as JSON.

Examples:
  enrich-cli enrich --first-name Jane --last-name Doe --domain acme.com
  enrich-cli enrich --offline --first-name Jane --company Acme --domain acme.com --save`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, err := newEngine(ctx, engineOptions{withStore: enrichSave, withCache: enrichCache})
		if err != nil {
			return err
		}
		defer eng.Close()

		result, err := eng.Enricher.Enrich(ctx, enrichContact)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		if enrichSave {
			if err := eng.Store.SaveResult(ctx, enrichContact, result); err != nil {
				return eris.Wrap(err, "enrich: save result")
			}
			zap.L().Info("result saved", zap.String("id", result.ID))
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	f := enrichCmd.Flags()
	f.StringVar(&enrichContact.FirstName, "first-name", "", "contact first name")
	f.StringVar(&enrichContact.LastName, "last-name", "", "contact last name")
	f.StringVar(&enrichContact.Company, "company", "", "company name")
	f.StringVar(&enrichContact.CompanyDomain, "domain", "", "company domain")
	f.StringVar(&enrichContact.ProfileURL, "profile-url", "", "LinkedIn profile URL")
	f.StringVar(&enrichContact.Position, "position", "", "job title")
	f.BoolVar(&enrichSave, "save", false, "persist the result to the configured store")
	f.BoolVar(&enrichCache, "cache", false, "serve and fill the redis result cache")
	rootCmd.AddCommand(enrichCmd)
}
