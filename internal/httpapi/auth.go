package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
	"github.com/MrEthical07/sessionauth/session"
	"github.com/google/uuid"
)

const (
	oauthNonceCookie = "oauth_nonce"
	oauthNonceMaxAge = 10 * time.Minute
)

var (
	errNoSession         = errors.New("session carrier missing from request context")
	errProviderDisabled  = sessionauth.NotFoundError("provider login is not enabled")
	errInvalidOAuthState = sessionauth.ForbiddenError("invalid oauth state")
	errMissingOAuthCode  = sessionauth.InvalidInputError("authorization code required")
	errProviderRejected  = sessionauth.UnauthorizedError("provider login failed")
)

func (a *api) carrier(r *http.Request) (*session.HTTPCarrier, error) {
	c, ok := middleware.CarrierFromContext(r.Context())
	if !ok {
		return nil, errNoSession
	}
	return c, nil
}

func (a *api) csrfToken(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": middleware.CSRFToken(r)})
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.carrier(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.svc.Login(r.Context(), req.Identifier, req.Password, c.ID())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.establish(w, r, c, res)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// establish writes res into the carrier, saves it and loads the profile
// returned to the client.
func (a *api) establish(w http.ResponseWriter, r *http.Request, c *session.HTTPCarrier, res *sessionauth.SessionResult) (*sessionauth.PublicUser, error) {
	c.SetUserID(res.UserID)
	c.SetLastRenewed(res.EstablishedAt)
	if err := c.Save(r.Context()); err != nil {
		return nil, err
	}
	return a.svc.GetProfile(r.Context(), res.UserID)
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	c, err := a.carrier(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Logout(r.Context(), c.UserID(), c.ID()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.clearSession(r, c)
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (a *api) logoutAll(w http.ResponseWriter, r *http.Request) {
	c, err := a.carrier(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	n, err := a.svc.LogoutAll(r.Context(), c.UserID())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.clearSession(r, c)
	middleware.WriteJSON(w, http.StatusOK, struct {
		Message  string `json:"message"`
		Sessions int    `json:"sessions"`
	}{"Logged out from all devices", n})
}

// clearSession expires the client cookie. The server-side record is already
// gone, so a failure here only leaves a dangling cookie.
func (a *api) clearSession(r *http.Request, c *session.HTTPCarrier) {
	if err := c.Destroy(r.Context()); err != nil {
		a.logger.WarnContext(r.Context(), "session cookie clear failed", slog.String("error", err.Error()))
	}
}

func (a *api) profile(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.GetProfile(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

func (a *api) googleStart(w http.ResponseWriter, r *http.Request) {
	if a.google == nil || a.states == nil {
		a.fail(w, r, errProviderDisabled)
		return
	}

	nonce := uuid.NewString()
	state, err := a.states.CreateState(a.google.Name(), nonce, "")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	// Lax so the cookie survives the top-level redirect back from Google.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthNonceCookie,
		Value:    nonce,
		Path:     "/auth/google",
		MaxAge:   int(oauthNonceMaxAge / time.Second),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.google.AuthCodeURL(state), http.StatusFound)
}

func (a *api) googleRedirect(w http.ResponseWriter, r *http.Request) {
	if a.google == nil || a.states == nil {
		a.fail(w, r, errProviderDisabled)
		return
	}

	q := r.URL.Query()
	nonce, err := r.Cookie(oauthNonceCookie)
	if err != nil {
		a.fail(w, r, errInvalidOAuthState)
		return
	}
	claims, err := a.states.ParseState(q.Get("state"), nonce.Value)
	if err != nil || claims.Provider != a.google.Name() {
		a.fail(w, r, errInvalidOAuthState)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthNonceCookie, Path: "/auth/google", MaxAge: -1, HttpOnly: true, Secure: a.secure})

	code := q.Get("code")
	if code == "" {
		a.fail(w, r, errMissingOAuthCode)
		return
	}

	identity, err := a.google.Exchange(r.Context(), code)
	if err != nil {
		a.logger.WarnContext(r.Context(), "provider exchange failed",
			slog.String("provider", a.google.Name()),
			slog.String("error", err.Error()),
		)
		a.fail(w, r, errProviderRejected)
		return
	}

	user, err := a.svc.ProvisionFromProvider(r.Context(), identity)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	c, err := a.carrier(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.EstablishSession(r.Context(), user.ID, c.ID())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.establish(w, r, c, res); err != nil {
		a.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, struct {
		Message string                  `json:"message"`
		User    *sessionauth.PublicUser `json:"user"`
	}{"User info from Google", user})
}
