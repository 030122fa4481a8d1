package provider

import (
	"context"
	"net/http"

	"github.com/sells-group/enrich-cli/internal/model"
)

const icypeasBaseURL = "https://app.icypeas.com/api"

// Icypeas finds professional emails from a name and a company or domain.
type Icypeas struct {
	client *jsonClient
}

// NewIcypeas creates the icypeas adapter.
func NewIcypeas(cfg Config, opts ...Option) *Icypeas {
	return &Icypeas{client: newJSONClient("icypeas", icypeasBaseURL, cfg, func(req *http.Request, key string) {
		req.Header.Set("Authorization", key)
	}, opts...)}
}

// Name implements Provider.
func (p *Icypeas) Name() string { return "icypeas" }

type icypeasRequest struct {
	FirstName       string `json:"firstname"`
	LastName        string `json:"lastname,omitempty"`
	DomainOrCompany string `json:"domainOrCompany"`
}

type icypeasResponse struct {
	Success bool `json:"success"`
	Item    struct {
		Status  string `json:"status"`
		Results struct {
			Emails []struct {
				Email string `json:"email"`
			} `json:"emails"`
			Phones []struct {
				Number string `json:"number"`
			} `json:"phones"`
			Confidence float64 `json:"confidence"`
		} `json:"results"`
	} `json:"item"`
}

// Call implements Provider.
func (p *Icypeas) Call(ctx context.Context, contact model.ContactInput) (*RawResult, error) {
	target := contact.Domain()
	if target == "" {
		target = contact.Company
	}
	body, err := p.client.do(ctx, http.MethodPost, "/email-search", icypeasRequest{
		FirstName:       contact.FirstName,
		LastName:        contact.LastName,
		DomainOrCompany: target,
	})
	if err != nil {
		return nil, err
	}

	var resp icypeasResponse
	if err := decode(p.Name(), body, &resp); err != nil {
		return nil, err
	}

	out := &RawResult{Provider: p.Name(), Payload: body}
	if len(resp.Item.Results.Emails) > 0 {
		out.Email = resp.Item.Results.Emails[0].Email
	}
	if len(resp.Item.Results.Phones) > 0 {
		out.Phone = resp.Item.Results.Phones[0].Number
	}
	return out, nil
}
