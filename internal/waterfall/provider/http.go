package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

// DefaultTimeout is the hard per-call timeout applied to every vendor request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response ends up in messages.
const maxErrorBody = 512

// Config holds the credentials and endpoint of one vendor.
type Config struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Option configures an adapter's HTTP client.
type Option func(*jsonClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *jsonClient) {
		c.http = hc
	}
}

// WithBaseURL overrides the configured base URL.
func WithBaseURL(url string) Option {
	return func(c *jsonClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// jsonClient performs authenticated JSON requests and maps HTTP failures
// onto the resilience error taxonomy.
type jsonClient struct {
	name    string
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client

	// authorize sets credentials on a request.
	authorize func(req *http.Request, apiKey string)
}

func newJSONClient(name, defaultBaseURL string, cfg Config, authorize func(*http.Request, string), opts ...Option) *jsonClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &jsonClient{
		name:      name,
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		authorize: authorize,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do sends a request and returns the response body of a 2xx reply. A nil
// body sends no payload.
func (c *jsonClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if c.apiKey == "" {
		return nil, resilience.NewAuthError(c.name, 0, eris.New("missing API key"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: marshal request", c.name)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", c.name)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(req, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(redactURL(err), "%s: send request", c.name), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "%s: read response", c.name), resp.StatusCode)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resilience.IsAuthHTTPStatus(resp.StatusCode):
		return nil, resilience.NewAuthError(c.name, resp.StatusCode,
			eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody)))
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("%s: unexpected status %d: %s", c.name, resp.StatusCode, truncate(respBody)), resp.StatusCode)
	default:
		return nil, eris.Errorf("%s: unexpected status %d: %s", c.name, resp.StatusCode, truncate(respBody))
	}
}

// decode unmarshals a vendor payload, tagging failures as malformed.
func decode(name string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(resilience.ErrMalformed, "%s: decode response: %v", name, err)
	}
	return nil
}

// redactURL drops the query string from a transport error's URL so
// credentials passed as parameters never reach logs.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	if u, perr := url.Parse(ue.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		ue.URL = u.String()
	} else {
		ue.URL = "[redacted]"
	}
	return err
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}

func bearer(req *http.Request, key string) {
	req.Header.Set("Authorization", "Bearer "+key)
}
