package provider

import (
	"context"
	"net/http"

	"github.com/sells-group/enrich-cli/internal/model"
)

const apolloBaseURL = "https://api.apollo.io/api/v1"

// Apollo wraps the apollo.io people match endpoint.
type Apollo struct {
	client *jsonClient
}

// NewApollo creates the apollo adapter.
func NewApollo(cfg Config, opts ...Option) *Apollo {
	return &Apollo{client: newJSONClient("apollo", apolloBaseURL, cfg, func(req *http.Request, key string) {
		req.Header.Set("X-Api-Key", key)
	}, opts...)}
}

// Name implements Provider.
func (p *Apollo) Name() string { return "apollo" }

type apolloRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name,omitempty"`
	OrganizationName     string `json:"organization_name,omitempty"`
	Domain               string `json:"domain,omitempty"`
	LinkedInURL          string `json:"linkedin_url,omitempty"`
	RevealPersonalEmails bool   `json:"reveal_personal_emails"`
	RevealPhoneNumber    bool   `json:"reveal_phone_number"`
}

type apolloResponse struct {
	Person *struct {
		Email        *string `json:"email"`
		EmailStatus  string  `json:"email_status"`
		PhoneNumbers []struct {
			SanitizedNumber string `json:"sanitized_number"`
		} `json:"phone_numbers"`
	} `json:"person"`
}

// Call implements Provider.
func (p *Apollo) Call(ctx context.Context, contact model.ContactInput) (*RawResult, error) {
	body, err := p.client.do(ctx, http.MethodPost, "/people/match", apolloRequest{
		FirstName:        contact.FirstName,
		LastName:         contact.LastName,
		OrganizationName: contact.Company,
		Domain:           contact.Domain(),
		LinkedInURL:      contact.ProfileURL,
	})
	if err != nil {
		return nil, err
	}

	var resp apolloResponse
	if err := decode(p.Name(), body, &resp); err != nil {
		return nil, err
	}

	out := &RawResult{Provider: p.Name(), Payload: body}
	if resp.Person == nil {
		return out, nil
	}
	if resp.Person.Email != nil {
		out.Email = *resp.Person.Email
	}
	if len(resp.Person.PhoneNumbers) > 0 {
		out.Phone = resp.Person.PhoneNumbers[0].SanitizedNumber
	}
	return out, nil
}
