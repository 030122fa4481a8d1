package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContactInput_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		contact ContactInput
		wantErr string
	}{
		{"name and company", ContactInput{FirstName: "Ada", Company: "Acme"}, ""},
		{"name and domain", ContactInput{FirstName: "Ada", CompanyDomain: "acme.io"}, ""},
		{"missing first name", ContactInput{Company: "Acme"}, "first name"},
		{"missing company and domain", ContactInput{FirstName: "Ada"}, "company or company domain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.contact.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestContactInput_Domain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acme.io", ContactInput{CompanyDomain: "https://www.Acme.io/about"}.Domain())
	assert.Equal(t, "acme.io", ContactInput{CompanyDomain: "acme.io"}.Domain())
	assert.Equal(t, "", ContactInput{}.Domain())
}

func TestContactInput_KeyFoldsDiacritics(t *testing.T) {
	t.Parallel()

	a := ContactInput{FirstName: "José", LastName: "Núñez", Company: "Ácme  Corp"}
	b := ContactInput{FirstName: "jose", LastName: "nunez", Company: "acme corp"}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), ContactInput{FirstName: "jose", Company: "acme corp"}.Key())
}

func TestContactInput_FullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada Lovelace", ContactInput{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", ContactInput{FirstName: "Ada"}.FullName())
}

func TestEnrichmentResult_Found(t *testing.T) {
	t.Parallel()

	var nilResult *EnrichmentResult
	assert.False(t, nilResult.Found())
	assert.False(t, (&EnrichmentResult{Source: SourceNone}).Found())
	assert.True(t, (&EnrichmentResult{Phone: "+33612345678"}).Found())

	r := &EnrichmentResult{Attempts: []ProviderAttempt{{Provider: "icypeas"}, {Provider: "hunter"}}}
	assert.Equal(t, []string{"icypeas", "hunter"}, r.ProviderNames())
}
