package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show the service order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		wc, err := cfg.WaterfallConfig()
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"Rank", "Provider", "Cost/call", "Calls/min", "Min interval", "API key"})
		for _, d := range wc.ServiceOrder() {
			key := "missing"
			if cfg.Providers[d.Name].APIKey != "" {
				key = "set"
			}
			if offline {
				key = "offline"
			}
			tw.AppendRow(table.Row{
				d.PriorityRank, d.Name,
				fmt.Sprintf("$%.3f", d.CostPerCall),
				d.CallsPerMinute,
				resilience.Interval(d.CallsPerMinute),
				key,
			})
		}
		s := wc.Settings
		tw.AppendFooter(table.Row{"", "thresholds",
			fmt.Sprintf("min %.2f", s.MinimumConfidence),
			fmt.Sprintf("high %.2f", s.HighConfidence),
			fmt.Sprintf("excellent %.2f", s.ExcellentConfidence),
			fmt.Sprintf("max %d", s.MaxProvidersPerContact),
		})
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
