package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

const (
	dropcontactBaseURL = "https://api.dropcontact.io"

	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
)

// Dropcontact enriches contacts through an asynchronous submit-then-poll API.
type Dropcontact struct {
	client      *jsonClient
	pollInitial time.Duration
	pollCap     time.Duration
}

// DropcontactOption configures polling.
type DropcontactOption func(*Dropcontact)

// WithPollInterval overrides the initial and maximum poll intervals.
func WithPollInterval(initial, maxInterval time.Duration) DropcontactOption {
	return func(p *Dropcontact) {
		p.pollInitial = initial
		p.pollCap = maxInterval
	}
}

// NewDropcontact creates the dropcontact adapter.
func NewDropcontact(cfg Config, popts []DropcontactOption, opts ...Option) *Dropcontact {
	p := &Dropcontact{
		client: newJSONClient("dropcontact", dropcontactBaseURL, cfg, func(req *http.Request, key string) {
			req.Header.Set("X-Access-Token", key)
		}, opts...),
		pollInitial: defaultPollInitial,
		pollCap:     defaultPollCap,
	}
	for _, o := range popts {
		o(p)
	}
	return p
}

// Name implements Provider.
func (p *Dropcontact) Name() string { return "dropcontact" }

type dropcontactContact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Website   string `json:"website,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

type dropcontactSubmit struct {
	Data     []dropcontactContact `json:"data"`
	SIREN    bool                 `json:"siren"`
	Language string               `json:"language"`
}

type dropcontactSubmitResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
	Error     bool   `json:"error"`
	Reason    string `json:"reason"`
}

type dropcontactStatus struct {
	Success bool   `json:"success"`
	Error   bool   `json:"error"`
	Reason  string `json:"reason"`
	Data    []struct {
		Email []struct {
			Email string `json:"email"`
		} `json:"email"`
		Phone       string `json:"phone"`
		MobilePhone string `json:"mobile_phone"`
	} `json:"data"`
}

// Call implements Provider. The returned payload is the final status body.
func (p *Dropcontact) Call(ctx context.Context, contact model.ContactInput) (*RawResult, error) {
	body, err := p.client.do(ctx, http.MethodPost, "/enrich/all", dropcontactSubmit{
		Data: []dropcontactContact{{
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Company:   contact.Company,
			Website:   contact.Domain(),
			LinkedIn:  contact.ProfileURL,
		}},
		Language: "en",
	})
	if err != nil {
		return nil, err
	}

	var submitted dropcontactSubmitResponse
	if err := decode(p.Name(), body, &submitted); err != nil {
		return nil, err
	}
	if submitted.Error || submitted.RequestID == "" {
		return nil, eris.Errorf("dropcontact: submit rejected: %s", submitted.Reason)
	}

	status, payload, err := p.poll(ctx, submitted.RequestID)
	if err != nil {
		return nil, err
	}

	out := &RawResult{Provider: p.Name(), Payload: payload}
	if len(status.Data) == 0 {
		return out, nil
	}
	row := status.Data[0]
	if len(row.Email) > 0 {
		out.Email = row.Email[0].Email
	}
	out.Phone = row.MobilePhone
	if out.Phone == "" {
		out.Phone = row.Phone
	}
	return out, nil
}

// poll fetches the request status until it is ready. Uses exponential
// backoff: 2s -> 4s -> 8s -> 15s (capped). The caller's context bounds the
// total wait.
func (p *Dropcontact) poll(ctx context.Context, requestID string) (*dropcontactStatus, []byte, error) {
	interval := p.pollInitial
	for {
		body, err := p.client.do(ctx, http.MethodGet, "/enrich/all/"+requestID, nil)
		if err != nil {
			return nil, nil, eris.Wrap(err, fmt.Sprintf("dropcontact: poll %s", requestID))
		}

		var status dropcontactStatus
		if err := decode(p.Name(), body, &status); err != nil {
			return nil, nil, err
		}
		switch {
		case status.Success:
			return &status, body, nil
		case status.Error:
			return nil, nil, eris.Errorf("dropcontact: request %s failed: %s", requestID, status.Reason)
		}

		select {
		case <-ctx.Done():
			return nil, nil, resilience.NewTransientError(
				eris.Wrap(ctx.Err(), fmt.Sprintf("dropcontact: poll %s timed out", requestID)), 0)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > p.pollCap {
			interval = p.pollCap
		}
	}
}
