package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/waterfall"
)

var (
	batchInput       string
	batchOutput      string
	batchFormat      string
	batchLimit       int
	batchConcurrency int
	batchSave        bool
	batchCache       bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich contacts from a CSV file",
	Long: `Reads contacts from a CSV file with the columns first_name, last_name,
company, company_domain, profile_url and position, then enriches them
concurrently. Rows without a first name or a company are skipped.

Examples:
  enrich-cli batch --input contacts.csv --format table
  enrich-cli batch --input contacts.csv --concurrency 10 --save --cache --output results.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchFormat != "json" && batchFormat != "table" && batchFormat != "csv" {
			return eris.Errorf("batch: --format must be json, table or csv (got %q)", batchFormat)
		}

		contacts, err := readContacts(batchInput)
		if err != nil {
			return err
		}
		contacts = validContacts(contacts)
		if batchLimit > 0 && batchLimit < len(contacts) {
			contacts = contacts[:batchLimit]
		}
		if len(contacts) == 0 {
			zap.L().Info("batch: no valid contacts")
			return nil
		}

		eng, err := newEngine(ctx, engineOptions{withStore: batchSave, withCache: batchCache})
		if err != nil {
			return err
		}
		defer eng.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}
		results := waterfall.EnrichBatch(ctx, eng.Enricher, contacts, concurrency)

		if batchSave {
			n, err := eng.Store.SaveResults(ctx, contacts, results)
			if err != nil {
				return eris.Wrap(err, "batch: save results")
			}
			zap.L().Info("batch: results saved", zap.Int64("rows", n))
		}

		w := cmd.OutOrStdout()
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "batch: create %s", batchOutput)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		return writeBatch(w, batchFormat, contacts, results)
	},
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchInput, "input", "", "CSV file of contacts")
	f.StringVar(&batchOutput, "output", "", "output file path (default: stdout)")
	f.StringVar(&batchFormat, "format", "json", "output format: json, table or csv")
	f.IntVar(&batchLimit, "limit", 0, "max number of contacts to process (0 = all)")
	f.IntVar(&batchConcurrency, "concurrency", 0, "contacts enriched at once (default batch.max_concurrent)")
	f.BoolVar(&batchSave, "save", false, "persist results to the configured store")
	f.BoolVar(&batchCache, "cache", false, "serve and fill the redis result cache")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// readContacts parses a contacts CSV.
func readContacts(path string) ([]model.ContactInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	var contacts []model.ContactInput
	if err := csvutil.Unmarshal(data, &contacts); err != nil {
		return nil, eris.Wrapf(err, "batch: parse %s", path)
	}
	return contacts, nil
}

// validContacts drops rows that cannot identify a person.
func validContacts(contacts []model.ContactInput) []model.ContactInput {
	out := make([]model.ContactInput, 0, len(contacts))
	for i, c := range contacts {
		if err := c.Validate(); err != nil {
			zap.L().Warn("batch: skipping row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	return out
}

// resultRow is one line of CSV output.
type resultRow struct {
	FirstName        string  `csv:"first_name"`
	LastName         string  `csv:"last_name"`
	Company          string  `csv:"company"`
	Email            string  `csv:"email"`
	Phone            string  `csv:"phone"`
	Confidence       float64 `csv:"confidence"`
	Source           string  `csv:"source"`
	TotalCost        float64 `csv:"total_cost"`
	LeadScore        int     `csv:"lead_score"`
	EmailReliability string  `csv:"email_reliability"`
	EmailVerified    bool    `csv:"email_verified"`
	PhoneVerified    bool    `csv:"phone_verified"`
	Cached           bool    `csv:"cached"`
	ID               string  `csv:"id"`
}

func writeBatch(w io.Writer, format string, contacts []model.ContactInput, results []*model.EnrichmentResult) error {
	summary := waterfall.Summarize(results)

	switch format {
	case "table":
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Name", "Company", "Email", "Phone", "Conf", "Source", "Cost", "Lead", "Reliability"})
		for i, r := range results {
			c := contacts[i]
			tw.AppendRow(table.Row{
				c.FullName(), c.Company, r.Email, r.Phone,
				fmt.Sprintf("%.2f", r.Confidence), r.Source,
				fmt.Sprintf("$%.2f", r.TotalCost), r.LeadScore, r.EmailReliability,
			})
		}
		tw.AppendFooter(table.Row{
			fmt.Sprintf("%d contacts", summary.Contacts), "",
			fmt.Sprintf("%d found", summary.Found), "", "",
			strings.Join(summary.Providers(), ","),
			fmt.Sprintf("$%.2f", summary.TotalCost),
			fmt.Sprintf("%.1f", summary.AvgLeadScore), "",
		})
		tw.Render()
		return nil

	case "csv":
		rows := make([]resultRow, 0, len(results))
		for i, r := range results {
			c := contacts[i]
			rows = append(rows, resultRow{
				FirstName:        c.FirstName,
				LastName:         c.LastName,
				Company:          c.Company,
				Email:            r.Email,
				Phone:            r.Phone,
				Confidence:       r.Confidence,
				Source:           r.Source,
				TotalCost:        r.TotalCost,
				LeadScore:        r.LeadScore,
				EmailReliability: string(r.EmailReliability),
				EmailVerified:    r.EmailVerified,
				PhoneVerified:    r.PhoneVerified,
				Cached:           r.Cached,
				ID:               r.ID,
			})
		}
		data, err := csvutil.Marshal(rows)
		if err != nil {
			return eris.Wrap(err, "batch: encode csv")
		}
		_, err = w.Write(data)
		return err

	default:
		return writeJSON(w, struct {
			Summary waterfall.BatchSummary    `json:"summary"`
			Results []*model.EnrichmentResult `json:"results"`
		}{summary, results})
	}
}
