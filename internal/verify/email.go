// Package verify checks the deliverability of emails and the validity of
// phone numbers returned by the enrichment cascade.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Verification levels, from weakest to strongest.
const (
	LevelSyntax  = "syntax"
	LevelDomain  = "domain"
	LevelMailbox = "mailbox"
)

const defaultAPITimeout = 10 * time.Second

// Resolver looks up mail exchangers. *net.Resolver satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// EmailVerifier classifies an address without sending mail. Remote mailbox
// checks are only made when an API URL is configured. Catch-all domains are
// detected only by that mailbox API: without one IsCatchall is always false,
// so an excellent reliability has not been checked against catch-all.
type EmailVerifier struct {
	resolver   Resolver
	http       *http.Client
	apiURL     string
	apiKey     string
	disposable map[string]bool
	roles      map[string]bool
}

// EmailOption configures an EmailVerifier.
type EmailOption func(*EmailVerifier)

// WithResolver replaces the DNS resolver.
func WithResolver(r Resolver) EmailOption {
	return func(v *EmailVerifier) {
		v.resolver = r
	}
}

// WithMailboxAPI enables remote mailbox and catch-all checks.
func WithMailboxAPI(url, apiKey string) EmailOption {
	return func(v *EmailVerifier) {
		v.apiURL = strings.TrimRight(url, "/")
		v.apiKey = apiKey
	}
}

// WithHTTPClient overrides the client used for the mailbox API.
func WithHTTPClient(hc *http.Client) EmailOption {
	return func(v *EmailVerifier) {
		v.http = hc
	}
}

// WithDisposableDomains adds domains to the disposable list.
func WithDisposableDomains(domains ...string) EmailOption {
	return func(v *EmailVerifier) {
		for _, d := range domains {
			v.disposable[strings.ToLower(d)] = true
		}
	}
}

// NewEmailVerifier creates an EmailVerifier using the system resolver.
func NewEmailVerifier(opts ...EmailOption) *EmailVerifier {
	v := &EmailVerifier{
		resolver:   net.DefaultResolver,
		http:       &http.Client{Timeout: defaultAPITimeout},
		disposable: toSet(disposableDomains),
		roles:      toSet(roleLocalParts),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// mailboxResponse is the remote verification API reply.
type mailboxResponse struct {
	Result    string  `json:"result"` // deliverable, undeliverable, risky, unknown
	AcceptAll bool    `json:"accept_all"`
	Score     float64 `json:"score"` // 0-100
}

// Verify classifies email. A judgement (invalid syntax, no MX) is returned as
// a result; an error means verification itself could not run.
func (v *EmailVerifier) Verify(ctx context.Context, email string) (*model.EmailVerificationResult, error) {
	res := &model.EmailVerificationResult{VerificationLevel: LevelSyntax}

	local, domain, ok := splitAddress(email)
	if !ok {
		res.Reason = "invalid syntax"
		return res, nil
	}
	res.IsDisposable = v.disposable[domain]
	res.IsRoleBased = v.roles[local]

	mx, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if !errors.As(err, &dnsErr) || !dnsErr.IsNotFound {
			return nil, eris.Wrapf(err, "verify: lookup mx for %s", domain)
		}
	}
	if len(mx) == 0 {
		res.Score = 10
		res.Reason = "domain has no mail exchanger"
		return res, nil
	}
	res.VerificationLevel = LevelDomain
	res.IsValid = true
	res.Deliverable = true
	score := 70.0

	if v.apiURL != "" {
		mr, err := v.checkMailbox(ctx, email)
		if err != nil {
			return nil, err
		}
		res.VerificationLevel = LevelMailbox
		res.IsCatchall = mr.AcceptAll
		switch mr.Result {
		case "deliverable":
			score = 95
		case "undeliverable":
			res.IsValid = false
			res.Deliverable = false
			res.Reason = "mailbox does not exist"
			score = 10
		default:
			res.Deliverable = false
			score = 60
		}
		if mr.Score > 0 && res.IsValid {
			score = mr.Score
		}
	}

	if res.IsCatchall {
		score -= 20
		res.Reason = joinReason(res.Reason, "catch-all domain")
	}
	if res.IsRoleBased {
		score -= 15
		res.Reason = joinReason(res.Reason, "role-based address")
	}
	if res.IsDisposable {
		score -= 40
		res.Deliverable = false
		res.Reason = joinReason(res.Reason, "disposable domain")
	}
	res.Score = clampScore(score)
	return res, nil
}

func (v *EmailVerifier) checkMailbox(ctx context.Context, email string) (*mailboxResponse, error) {
	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return nil, eris.Wrap(err, "verify: marshal mailbox request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.apiURL+"/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "verify: create mailbox request")
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "verify: mailbox request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "verify: read mailbox response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("verify: mailbox api status %d", resp.StatusCode)
	}

	var out mailboxResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "verify: decode mailbox response")
	}
	return &out, nil
}

// splitAddress returns the lowercased local part and domain of a bare
// address. Display names are rejected.
func splitAddress(email string) (string, string, bool) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", "", false
	}
	at := strings.LastIndex(addr.Address, "@")
	local, domain := addr.Address[:at], strings.ToLower(addr.Address[at+1:])
	if local == "" || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", "", false
	}
	return strings.ToLower(local), domain, true
}

func joinReason(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

func clampScore(s float64) int {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return int(s)
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

var disposableDomains = []string{
	"10minutemail.com",
	"discard.email",
	"dispostable.com",
	"fakeinbox.com",
	"getnada.com",
	"guerrillamail.com",
	"guerrillamail.net",
	"mailcatch.com",
	"maildrop.cc",
	"mailinator.com",
	"mailnesia.com",
	"mintemail.com",
	"mohmal.com",
	"sharklasers.com",
	"spamgourmet.com",
	"temp-mail.org",
	"tempmail.com",
	"tempr.email",
	"throwawaymail.com",
	"trashmail.com",
	"yopmail.com",
}

var roleLocalParts = []string{
	"admin",
	"billing",
	"careers",
	"contact",
	"hello",
	"help",
	"hr",
	"info",
	"jobs",
	"marketing",
	"no-reply",
	"noreply",
	"office",
	"postmaster",
	"sales",
	"support",
	"team",
	"webmaster",
}
