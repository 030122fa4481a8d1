package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

func TestEnrich_OfflineExcellentFirstProvider(t *testing.T) {
	out, err := execute(t, "--offline", "enrich", "--first-name", "Hank", "--last-name", "Scorpio", "--company", "Globex", "--domain", "globex.com")
	require.NoError(t, err)

	var result model.EnrichmentResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "hank.scorpio@globex.com", result.Email)
	assert.Equal(t, "icypeas", result.Source)
	assert.InDelta(t, 0.94, result.Confidence, 1e-9)
	require.Len(t, result.Attempts, 1)
	assert.InDelta(t, 0.01, result.TotalCost, 1e-9)
}

func TestEnrich_OfflineCascade(t *testing.T) {
	out, err := execute(t, "--offline", "enrich", "--first-name", "Jane", "--company", "Acme", "--domain", "acme.com")
	require.NoError(t, err)

	var result model.EnrichmentResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "jane@acme.com", result.Email)
	assert.Equal(t, "hunter", result.Source)
	assert.Equal(t, []string{"icypeas", "dropcontact", "hunter"}, result.ProviderNames())
	assert.InDelta(t, 0.06, result.TotalCost, 1e-9)
}

func TestEnrich_OfflineNothingFound(t *testing.T) {
	out, err := execute(t, "--offline", "enrich", "--first-name", "Nobody", "--domain", "unknown.example")
	require.NoError(t, err)

	var result model.EnrichmentResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, model.SourceNone, result.Source)
	assert.Empty(t, result.Email)
	assert.Equal(t, model.ReliabilityNoEmail, result.EmailReliability)
}

func TestEnrich_EmptyContact(t *testing.T) {
	_, err := execute(t, "--offline", "enrich")
	assert.Error(t, err)
}

func writeContactsCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	csv := "first_name,last_name,company,company_domain,profile_url,position\n" +
		"Jane,Doe,Acme,acme.com,,CTO\n" +
		"Hank,Scorpio,Globex,globex.com,,CEO\n" +
		",Missing,Nowhere,nowhere.com,,\n" +
		"Nobody,Known,Unknown Inc,unknown.example,,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))
	return path
}

func TestReadContacts(t *testing.T) {
	contacts, err := readContacts(writeContactsCSV(t))
	require.NoError(t, err)
	require.Len(t, contacts, 4)
	assert.Equal(t, "acme.com", contacts[0].CompanyDomain)
	assert.Equal(t, "CTO", contacts[0].Position)

	valid := validContacts(contacts)
	assert.Len(t, valid, 3)
}

func TestReadContacts_Missing(t *testing.T) {
	_, err := readContacts(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorContains(t, err, "batch: read")
}

func TestBatch_OfflineJSON(t *testing.T) {
	input := writeContactsCSV(t)
	out, err := execute(t, "--offline", "batch", "--input", input, "--concurrency", "2")
	require.NoError(t, err)

	var payload struct {
		Summary struct {
			Contacts int `json:"contacts"`
			Found    int `json:"found"`
		} `json:"summary"`
		Results []model.EnrichmentResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, 3, payload.Summary.Contacts)
	assert.Equal(t, 2, payload.Summary.Found)
	require.Len(t, payload.Results, 3)
	assert.Equal(t, "jane@acme.com", payload.Results[0].Email)
	assert.Equal(t, "hank.scorpio@globex.com", payload.Results[1].Email)
	assert.Equal(t, model.SourceNone, payload.Results[2].Source)
}

func TestBatch_OfflineCSVWithStore(t *testing.T) {
	input := writeContactsCSV(t)
	dbPath := filepath.Join(t.TempDir(), "enrich.db")
	t.Setenv("ENRICH_STORE_DRIVER", "sqlite")
	t.Setenv("ENRICH_STORE_DATABASE_URL", dbPath)

	out, err := execute(t, "--offline", "batch", "--input", input, "--format", "csv", "--save", "--limit", "2")
	require.NoError(t, err)

	var rows []resultRow
	require.NoError(t, csvutil.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane", rows[0].FirstName)
	assert.Equal(t, "hunter", rows[0].Source)

	out, err = execute(t, "--offline", "results", "list", "--json")
	require.NoError(t, err)
	var records []store.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 2)

	out, err = execute(t, "--offline", "results", "get", rows[1].ID)
	require.NoError(t, err)
	var rec store.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "Hank", rec.Contact.FirstName)
	assert.Equal(t, "icypeas", rec.Result.Source)

	_, err = execute(t, "--offline", "results", "get", "missing")
	assert.ErrorContains(t, err, "no result with id missing")
}

func TestBatch_OfflineTable(t *testing.T) {
	out, err := execute(t, "--offline", "batch", "--input", writeContactsCSV(t), "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "jane@acme.com")
	// Footers render upper-cased.
	assert.Contains(t, strings.ToLower(out), "3 contacts")
}

func TestBatch_BadFormat(t *testing.T) {
	_, err := execute(t, "--offline", "batch", "--input", writeContactsCSV(t), "--format", "xml")
	assert.ErrorContains(t, err, "--format must be json, table or csv")
}

func TestBatch_SaveWithoutStore(t *testing.T) {
	_, err := execute(t, "--offline", "batch", "--input", writeContactsCSV(t), "--save")
	assert.ErrorContains(t, err, "no driver configured")
}

func TestScore(t *testing.T) {
	out, err := execute(t, "score", "--email", "jane@acme.com", "--email-verified", "--email-score", "95")
	require.NoError(t, err)

	var got struct {
		LeadScore        int    `json:"lead_score"`
		EmailReliability string `json:"email_reliability"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 75, got.LeadScore)
	assert.Equal(t, "excellent", got.EmailReliability)
}

func TestScore_OutOfRange(t *testing.T) {
	_, err := execute(t, "score", "--email-score", "140")
	assert.ErrorContains(t, err, "within [0,100]")
}

func TestVerifyPhone(t *testing.T) {
	out, err := execute(t, "verify", "phone", "+44 7400 123456")
	require.NoError(t, err)

	var res model.PhoneVerificationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsValid)
	assert.True(t, res.IsMobile)
	assert.Equal(t, "GB", res.Country)
}

func TestVerifyEmail_Offline(t *testing.T) {
	out, err := execute(t, "--offline", "verify", "email", "jane@acme.com")
	require.NoError(t, err)

	var res model.EmailVerificationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "domain", res.VerificationLevel)
	assert.Equal(t, 70, res.Score)
}

func TestEstimate(t *testing.T) {
	out, err := execute(t, "estimate", "--contacts", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "$1.00")
	assert.Contains(t, out, "$21.00")
	assert.Contains(t, out, "$0.21")
}

func TestEstimate_NoContacts(t *testing.T) {
	_, err := execute(t, "estimate")
	assert.ErrorContains(t, err, "give --contacts or --input")
}

func TestProviders(t *testing.T) {
	out, err := execute(t, "--offline", "providers")
	require.NoError(t, err)
	for _, name := range []string{"icypeas", "dropcontact", "hunter", "apollo", "kaspr"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "offline")
}
