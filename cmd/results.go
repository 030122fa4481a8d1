package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/store"
)

var (
	resultsFilter store.ResultFilter
	resultsSince  time.Duration
	resultsJSON   bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect persisted enrichment results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		filter := resultsFilter
		if resultsSince > 0 {
			filter.Since = time.Now().Add(-resultsSince)
		}
		records, err := s.ListResults(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if resultsJSON {
			return writeJSON(cmd.OutOrStdout(), records)
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"ID", "Name", "Email", "Phone", "Source", "Cost", "Lead", "Created"})
		for _, r := range records {
			tw.AppendRow(table.Row{
				r.Result.ID, r.Contact.FullName(), r.Result.Email, r.Result.Phone, r.Result.Source,
				fmt.Sprintf("$%.2f", r.Result.TotalCost), r.Result.LeadScore,
				r.Result.CreatedAt.Format(time.RFC3339),
			})
		}
		tw.Render()
		return nil
	},
}

var resultsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		rec, err := s.GetResult(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return eris.Errorf("results: no result with id %s", args[0])
		}
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rec)
	},
}

func init() {
	f := resultsListCmd.Flags()
	f.StringVar(&resultsFilter.Source, "source", "", "only results sourced from this provider")
	f.BoolVar(&resultsFilter.FoundOnly, "found", false, "only results with an email or phone")
	f.DurationVar(&resultsSince, "since", 0, "only results newer than this")
	f.IntVar(&resultsFilter.Limit, "limit", 50, "max results")
	f.IntVar(&resultsFilter.Offset, "offset", 0, "results to skip")
	f.BoolVar(&resultsJSON, "json", false, "print JSON instead of a table")
	resultsCmd.AddCommand(resultsListCmd, resultsGetCmd)
	rootCmd.AddCommand(resultsCmd)
}
