package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/sells-group/enrich-cli/internal/model"
)

const kasprBaseURL = "https://api.developers.kaspr.io"

// Kaspr resolves direct dials and emails from a LinkedIn profile URL.
type Kaspr struct {
	client *jsonClient
}

// NewKaspr creates the kaspr adapter.
func NewKaspr(cfg Config, opts ...Option) *Kaspr {
	return &Kaspr{client: newJSONClient("kaspr", kasprBaseURL, cfg, bearer, opts...)}
}

// Name implements Provider.
func (p *Kaspr) Name() string { return "kaspr" }

type kasprRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type kasprResponse struct {
	Profile *struct {
		ProfessionalEmails []string `json:"professionalEmails"`
		Phones             []string `json:"phones"`
		Confidence         float64  `json:"confidence"`
	} `json:"profile"`
}

// Call implements Provider. Contacts without a profile URL are not
// applicable.
func (p *Kaspr) Call(ctx context.Context, contact model.ContactInput) (*RawResult, error) {
	id := linkedInID(contact.ProfileURL)
	if id == "" {
		return nil, ErrNotApplicable
	}

	body, err := p.client.do(ctx, http.MethodPost, "/profile/linkedin", kasprRequest{
		ID:   id,
		Name: contact.FullName(),
	})
	if err != nil {
		return nil, err
	}

	var resp kasprResponse
	if err := decode(p.Name(), body, &resp); err != nil {
		return nil, err
	}

	out := &RawResult{Provider: p.Name(), Payload: body}
	if resp.Profile == nil {
		return out, nil
	}
	if len(resp.Profile.ProfessionalEmails) > 0 {
		out.Email = resp.Profile.ProfessionalEmails[0]
	}
	if len(resp.Profile.Phones) > 0 {
		out.Phone = resp.Profile.Phones[0]
	}
	return out, nil
}

// linkedInID extracts the public identifier from a /in/ profile URL.
func linkedInID(profileURL string) string {
	u := strings.TrimSpace(profileURL)
	i := strings.Index(u, "/in/")
	if i < 0 {
		return ""
	}
	id := u[i+len("/in/"):]
	if j := strings.IndexAny(id, "/?#"); j >= 0 {
		id = id[:j]
	}
	return id
}
