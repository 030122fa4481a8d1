package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sells-group/enrich-cli/internal/model"
)

const hunterBaseURL = "https://api.hunter.io/v2"

// Hunter wraps the hunter.io email finder.
type Hunter struct {
	client *jsonClient
}

// NewHunter creates the hunter adapter.
func NewHunter(cfg Config, opts ...Option) *Hunter {
	return &Hunter{client: newJSONClient("hunter", hunterBaseURL, cfg, func(req *http.Request, key string) {
		req.Header.Set("X-API-KEY", key)
	}, opts...)}
}

// Name implements Provider.
func (p *Hunter) Name() string { return "hunter" }

type hunterResponse struct {
	Data struct {
		Email       *string `json:"email"`
		Score       float64 `json:"score"`
		PhoneNumber *string `json:"phone_number"`
	} `json:"data"`
}

// Call implements Provider.
func (p *Hunter) Call(ctx context.Context, contact model.ContactInput) (*RawResult, error) {
	q := url.Values{}
	if d := contact.Domain(); d != "" {
		q.Set("domain", d)
	} else {
		q.Set("company", contact.Company)
	}
	q.Set("first_name", contact.FirstName)
	if contact.LastName != "" {
		q.Set("last_name", contact.LastName)
	}

	body, err := p.client.do(ctx, http.MethodGet, "/email-finder?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp hunterResponse
	if err := decode(p.Name(), body, &resp); err != nil {
		return nil, err
	}

	out := &RawResult{Provider: p.Name(), Payload: body}
	if resp.Data.Email != nil {
		out.Email = *resp.Data.Email
	}
	if resp.Data.PhoneNumber != nil {
		out.Phone = *resp.Data.PhoneNumber
	}
	return out, nil
}
