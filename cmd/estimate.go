package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/cost"
)

var (
	estimateContacts int
	estimateInput    string
	estimateSpend    time.Duration
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate provider spend for a batch",
	Long: `Prints the best-case spend (every contact resolved by the first provider)
and the worst-case spend (every contact tries the maximum number of providers).
With --spend, also reports what the configured store has recorded over that
window.

Examples:
  enrich-cli estimate --contacts 5000
  enrich-cli estimate --input contacts.csv --spend 720h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n := estimateContacts
		if estimateInput != "" {
			contacts, err := readContacts(estimateInput)
			if err != nil {
				return err
			}
			n = len(validContacts(contacts))
		}
		if n <= 0 {
			return eris.New("estimate: give --contacts or --input")
		}

		wc, err := cfg.WaterfallConfig()
		if err != nil {
			return err
		}
		order := wc.ServiceOrder()
		names := make([]string, 0, len(order))
		for _, d := range order {
			names = append(names, d.Name)
		}
		est := cost.EstimateBatch(n, names, cost.Table(wc.Costs()), wc.Settings.MaxProvidersPerContact)

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"Contacts", "Best case", "Worst case", "Worst per contact"})
		tw.AppendRow(table.Row{
			est.Contacts,
			fmt.Sprintf("$%.2f", est.BestCase),
			fmt.Sprintf("$%.2f", est.WorstCase),
			fmt.Sprintf("$%.2f", est.PerContactWorst),
		})

		if estimateSpend > 0 {
			s, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck

			spent, err := s.SpendSince(cmd.Context(), time.Now().Add(-estimateSpend))
			if err != nil {
				return err
			}
			tw.AppendFooter(table.Row{"Spent", fmt.Sprintf("last %s", estimateSpend), fmt.Sprintf("$%.2f", spent), ""})
		}
		tw.Render()
		return nil
	},
}

func init() {
	f := estimateCmd.Flags()
	f.IntVar(&estimateContacts, "contacts", 0, "number of contacts")
	f.StringVar(&estimateInput, "input", "", "CSV file of contacts to count")
	f.DurationVar(&estimateSpend, "spend", 0, "also report recorded spend over this window")
	rootCmd.AddCommand(estimateCmd)
}
