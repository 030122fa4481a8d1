package model

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ContactInput is a person to be enriched. It is never mutated by the
// enrichment engine.
type ContactInput struct {
	FirstName     string `json:"first_name" csv:"first_name"`
	LastName      string `json:"last_name,omitempty" csv:"last_name,omitempty"`
	Company       string `json:"company" csv:"company"`
	CompanyDomain string `json:"company_domain,omitempty" csv:"company_domain,omitempty"`
	ProfileURL    string `json:"profile_url,omitempty" csv:"profile_url,omitempty"`
	Position      string `json:"position,omitempty" csv:"position,omitempty"`
}

// Validate checks the minimum identifiers a provider needs.
func (c ContactInput) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return eris.New("contact: first name is required")
	}
	if strings.TrimSpace(c.Company) == "" && strings.TrimSpace(c.CompanyDomain) == "" {
		return eris.New("contact: company or company domain is required")
	}
	return nil
}

// FullName joins first and last name.
func (c ContactInput) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Domain returns the bare company domain without scheme, www prefix or path.
func (c ContactInput) Domain() string {
	d := strings.ToLower(strings.TrimSpace(c.CompanyDomain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}

// Key returns a stable identity for the contact, folded to lowercase ASCII so
// "José Núñez" and "jose nunez" collide.
func (c ContactInput) Key() string {
	parts := []string{
		fold(c.FirstName),
		fold(c.LastName),
		fold(c.Company),
		c.Domain(),
		strings.ToLower(strings.TrimSpace(c.ProfileURL)),
	}
	return strings.Join(parts, "|")
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}
