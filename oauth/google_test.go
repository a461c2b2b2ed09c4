package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, userinfo map[string]any) (*Google, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userinfo)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g, err := NewGoogle(GoogleConfig{ClientID: "cid", ClientSecret: "secret", AppDomain: "https://auth.example.com/"})
	require.NoError(t, err)
	g.WithEndpoints(oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, srv.URL+"/userinfo").WithHTTPClient(srv.Client())
	return g, srv
}

func TestNewGoogleRequiresCredentials(t *testing.T) {
	_, err := NewGoogle(GoogleConfig{ClientID: "cid"})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestAuthCodeURLCarriesStateAndRedirect(t *testing.T) {
	g, _ := newFakeGoogle(t, nil)

	raw := g.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "https://auth.example.com/auth/google/redirect", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestExchangeReturnsIdentity(t *testing.T) {
	verified := true
	g, _ := newFakeGoogle(t, map[string]any{
		"sub":            "g-1",
		"email":          "jane@example.com",
		"email_verified": verified,
		"given_name":     "Jane",
		"family_name":    "Doe",
	})

	id, err := g.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", id.Email)
	assert.Equal(t, "Jane Doe", id.Name)
	assert.Equal(t, ProviderGoogle, id.Provider)
}

func TestExchangeFailures(t *testing.T) {
	g, _ := newFakeGoogle(t, map[string]any{"sub": "g-1", "email": ""})

	_, err := g.Exchange(context.Background(), "")
	assert.Error(t, err)

	_, err = g.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)

	_, err = g.Exchange(context.Background(), "good-code")
	assert.True(t, errors.Is(err, ErrMissingEmail), "got %v", err)

	unverified, _ := newFakeGoogle(t, map[string]any{"email": "x@example.com", "email_verified": false})
	_, err = unverified.Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, ErrUnverifiedEmail)
}
