package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/sessionauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProviderGoogle names Google in provider identities and state tokens.
const ProviderGoogle = "google"

// GoogleUserInfoURL is the OpenID userinfo endpoint queried after exchange.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var (
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
	ErrMissingEmail          = errors.New("provider did not assert an email")
	ErrUnverifiedEmail       = errors.New("provider email is not verified")
)

// GoogleConfig holds the client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// RedirectURL defaults to AppDomain + "/auth/google/redirect".
	RedirectURL string
	AppDomain   string
}

// Google is the Google provider.
type Google struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogle returns ErrProviderNotConfigured when the client id or secret is
// empty, so callers can leave the routes unmounted.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderNotConfigured
	}
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = strings.TrimRight(cfg.AppDomain, "/") + "/auth/google/redirect"
	}

	return &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: GoogleUserInfoURL,
	}, nil
}

// WithEndpoints points the provider at different token and userinfo
// endpoints. Used by tests and by deployments behind an identity proxy.
func (g *Google) WithEndpoints(endpoint oauth2.Endpoint, userInfoURL string) *Google {
	g.config.Endpoint = endpoint
	g.userInfoURL = userInfoURL
	return g
}

// WithHTTPClient sets the client used for both exchange and userinfo.
func (g *Google) WithHTTPClient(c *http.Client) *Google {
	g.httpClient = c
	return g
}

func (g *Google) Name() string { return ProviderGoogle }

// AuthCodeURL is where the user agent is sent to start the handshake.
func (g *Google) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades code for a token and fetches the asserted identity.
func (g *Google) Exchange(ctx context.Context, code string) (sessionauth.ProviderIdentity, error) {
	if code == "" {
		return sessionauth.ProviderIdentity{}, errors.New("authorization code required")
	}
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return sessionauth.ProviderIdentity{}, fmt.Errorf("token exchange failed: %w", err)
	}

	client := g.config.Client(ctx, token)
	info, err := g.fetchUserInfo(ctx, client)
	if err != nil {
		return sessionauth.ProviderIdentity{}, err
	}

	if info.Email == "" {
		return sessionauth.ProviderIdentity{}, ErrMissingEmail
	}
	if info.EmailVerified != nil && !*info.EmailVerified {
		return sessionauth.ProviderIdentity{}, ErrUnverifiedEmail
	}

	return sessionauth.ProviderIdentity{
		Email:    info.Email,
		Name:     info.displayName(),
		Provider: ProviderGoogle,
	}, nil
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (u googleUserInfo) displayName() string {
	if u.Name != "" {
		return u.Name
	}
	name := strings.TrimSpace(u.GivenName + " " + u.FamilyName)
	if name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

func (g *Google) fetchUserInfo(ctx context.Context, client *http.Client) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Google user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode Google user response: %w", err)
	}
	return &info, nil
}
