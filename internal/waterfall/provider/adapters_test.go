package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

var ada = model.ContactInput{
	FirstName:     "Ada",
	LastName:      "Lovelace",
	Company:       "Analytical Engines",
	CompanyDomain: "https://www.engines.io",
	ProfileURL:    "https://www.linkedin.com/in/ada-lovelace/",
}

func TestIcypeas_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/email-search", r.URL.Path)
		assert.Equal(t, "icy-key", r.Header.Get("Authorization"))

		var req icypeasRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ada", req.FirstName)
		assert.Equal(t, "engines.io", req.DomainOrCompany)

		_, _ = w.Write([]byte(`{"success":true,"item":{"status":"FOUND","results":{"emails":[{"email":"ada@engines.io"}],"confidence":93}}}`))
	}))
	defer srv.Close()

	p := NewIcypeas(Config{APIKey: "icy-key", BaseURL: srv.URL})
	res, err := p.Call(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, "icypeas", res.Provider)
	assert.Equal(t, "ada@engines.io", res.Email)
	assert.Contains(t, string(res.Payload), `"confidence":93`)
}

func TestHunter_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email-finder", r.URL.Path)
		assert.Equal(t, "engines.io", r.URL.Query().Get("domain"))
		assert.Equal(t, "Lovelace", r.URL.Query().Get("last_name"))
		assert.Equal(t, "hunter-key", r.Header.Get("X-API-KEY"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"data":{"email":"ada@engines.io","score":88,"phone_number":null}}`))
	}))
	defer srv.Close()

	res, err := NewHunter(Config{APIKey: "hunter-key", BaseURL: srv.URL}).Call(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, "ada@engines.io", res.Email)
	assert.Empty(t, res.Phone)
}

func TestJSONClient_TransportErrorHidesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c := newJSONClient("test", baseURL, Config{APIKey: "SECRET-KEY-123"}, bearer)
	_, err := c.do(context.Background(), http.MethodGet, "/lookup?api_key=SECRET-KEY-123&name=ada", nil)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.NotContains(t, err.Error(), "name=ada")
	assert.Contains(t, err.Error(), "/lookup")
}

func TestHunter_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	_, err := NewHunter(Config{APIKey: "SECRET-KEY-123", BaseURL: baseURL}).Call(context.Background(), ada)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}

func TestHunter_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		auth      bool
		malformed bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"errors":[]}`, auth: true},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, auth: true},
		{name: "rate_limited", status: http.StatusTooManyRequests, body: `{}`, transient: true},
		{name: "server_error", status: http.StatusBadGateway, body: `oops`, transient: true},
		{name: "malformed", status: http.StatusOK, body: `{not json`, malformed: true},
		{name: "bad_request", status: http.StatusBadRequest, body: `{"errors":["bad"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHunter(Config{APIKey: "k", BaseURL: srv.URL}).Call(context.Background(), ada)
			require.Error(t, err)
			assert.Equal(t, tt.transient, resilience.IsTransient(err), "transient")
			assert.Equal(t, tt.auth, resilience.IsAuth(err), "auth")
			assert.Equal(t, tt.malformed, resilience.IsMalformed(err), "malformed")
		})
	}
}

func TestJSONClient_MissingKeyNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := NewApollo(Config{BaseURL: srv.URL}).Call(context.Background(), ada)
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
	assert.Zero(t, hits.Load())
}

func TestJSONClient_PerCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewIcypeas(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := p.Call(context.Background(), ada)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestApollo_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/match", r.URL.Path)
		assert.Equal(t, "apollo-key", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`{"person":{"email":"ada@engines.io","email_status":"verified","phone_numbers":[{"sanitized_number":"+14155550100"}]}}`))
	}))
	defer srv.Close()

	res, err := NewApollo(Config{APIKey: "apollo-key", BaseURL: srv.URL}).Call(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, "ada@engines.io", res.Email)
	assert.Equal(t, "+14155550100", res.Phone)
}

func TestApollo_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"person":null}`))
	}))
	defer srv.Close()

	res, err := NewApollo(Config{APIKey: "k", BaseURL: srv.URL}).Call(context.Background(), ada)
	require.NoError(t, err)
	assert.False(t, res.HasValue())
}

func TestKaspr_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer kaspr-key", r.Header.Get("Authorization"))
		var req kasprRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ada-lovelace", req.ID)
		_, _ = w.Write([]byte(`{"profile":{"professionalEmails":["ada@engines.io"],"phones":["+33612345678"],"confidence":75}}`))
	}))
	defer srv.Close()

	res, err := NewKaspr(Config{APIKey: "kaspr-key", BaseURL: srv.URL}).Call(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, "+33612345678", res.Phone)
	assert.Equal(t, "ada@engines.io", res.Email)
}

func TestKaspr_NotApplicableWithoutProfile(t *testing.T) {
	noProfile := ada
	noProfile.ProfileURL = ""
	_, err := NewKaspr(Config{APIKey: "k"}).Call(context.Background(), noProfile)
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestLinkedInID(t *testing.T) {
	assert.Equal(t, "ada-lovelace", linkedInID("https://www.linkedin.com/in/ada-lovelace/"))
	assert.Equal(t, "ada", linkedInID("linkedin.com/in/ada?trk=x"))
	assert.Equal(t, "", linkedInID("https://example.com/ada"))
}

func TestDropcontact_SubmitAndPoll(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dc-key", r.Header.Get("X-Access-Token"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/enrich/all":
			_, _ = w.Write([]byte(`{"success":true,"request_id":"req-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/enrich/all/req-1":
			if polls.Add(1) < 3 {
				_, _ = w.Write([]byte(`{"success":false,"reason":"Request not ready yet"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":[{"email":[{"email":"ada@engines.io","qualification":"nominative@pro"}],"phone":"+33102030405","mobile_phone":"+33612345678","qualification":"high"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewDropcontact(Config{APIKey: "dc-key", BaseURL: srv.URL},
		[]DropcontactOption{WithPollInterval(time.Millisecond, 4*time.Millisecond)})
	res, err := p.Call(context.Background(), ada)
	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())
	assert.Equal(t, "ada@engines.io", res.Email)
	assert.Equal(t, "+33612345678", res.Phone, "mobile number preferred")
	assert.Contains(t, string(res.Payload), `"qualification":"high"`)
}

func TestDropcontact_RequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success":true,"request_id":"req-2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error":true,"reason":"credits exhausted"}`))
	}))
	defer srv.Close()

	p := NewDropcontact(Config{APIKey: "k", BaseURL: srv.URL},
		[]DropcontactOption{WithPollInterval(time.Millisecond, time.Millisecond)})
	_, err := p.Call(context.Background(), ada)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credits exhausted")
}

func TestDropcontact_PollHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success":true,"request_id":"req-3"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"reason":"not ready"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	p := NewDropcontact(Config{APIKey: "k", BaseURL: srv.URL},
		[]DropcontactOption{WithPollInterval(5*time.Millisecond, 10*time.Millisecond)})
	_, err := p.Call(ctx, ada)
	require.Error(t, err)
}
