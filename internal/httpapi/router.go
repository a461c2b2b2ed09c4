package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/middleware"
	"github.com/MrEthical07/sessionauth/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Service is the engine surface the handlers call.
type Service interface {
	Login(ctx context.Context, identifier, password, sessionID string) (*sessionauth.SessionResult, error)
	EstablishSession(ctx context.Context, userID, sessionID string) (*sessionauth.SessionResult, error)
	Logout(ctx context.Context, userID, sessionID string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	RenewSession(ctx context.Context, c session.Carrier) session.RenewalOutcome

	Register(ctx context.Context, in sessionauth.RegisterInput) (*sessionauth.PublicUser, error)
	GetProfile(ctx context.Context, userID string) (*sessionauth.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, in sessionauth.UpdateProfileInput) (*sessionauth.PublicUser, error)
	DeleteAccount(ctx context.Context, userID string) error

	VerifyEmail(ctx context.Context, token string) (*sessionauth.PublicUser, error)
	ResendVerification(ctx context.Context, identifier string) (string, error)
	ProvisionFromProvider(ctx context.Context, identity sessionauth.ProviderIdentity) (*sessionauth.PublicUser, error)

	Ping(ctx context.Context) error
}

var _ Service = (*sessionauth.Engine)(nil)

// Provider is an OAuth identity provider such as *oauth.Google.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (sessionauth.ProviderIdentity, error)
}

// Deps wires the router. Google and Metrics are optional.
type Deps struct {
	Service    Service
	Sessions   *session.GorillaStore
	CookieName string

	CSRFKey      []byte
	SecureCookie bool
	CORSOrigins  []string

	Google Provider
	States *jwt.Manager

	Metrics http.Handler
	Logger  *slog.Logger
}

type api struct {
	svc        Service
	cookieName string
	secure     bool
	google     Provider
	states     *jwt.Manager
	logger     *slog.Logger
}

// NewRouter returns the service's HTTP handler.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{
		svc:        deps.Service,
		cookieName: deps.CookieName,
		secure:     deps.SecureCookie,
		google:     deps.Google,
		states:     deps.States,
		logger:     logger,
	}
	if a.cookieName == "" {
		a.cookieName = session.DefaultCookieName
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ClientIP)
	r.Use(middleware.RequestLogging(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", a.health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(deps.CORSOrigins))
		r.Use(chimiddleware.Timeout(30 * time.Second))
		r.Use(middleware.LoadSession(deps.Sessions, a.cookieName, logger))
		r.Use(middleware.CSRF(middleware.CSRFConfig{
			Key:            deps.CSRFKey,
			Secure:         deps.SecureCookie,
			TrustedOrigins: deps.CORSOrigins,
			Logger:         logger,
		}))

		authed := middleware.RequireSession(deps.Service, logger)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/csrf-token", a.csrfToken)
			r.Post("/", a.login)
			r.Get("/google", a.googleStart)
			r.Get("/google/redirect", a.googleRedirect)

			r.With(authed).Post("/logout", a.logout)
			r.With(authed).Post("/logout-all", a.logoutAll)
			r.With(authed).Get("/profile", a.profile)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", a.register)
			r.Get("/verify-user", a.verifyUser)
			r.Post("/resend-verification", a.resendVerification)

			r.With(authed).Patch("/", a.updateProfile)
			r.With(authed).Delete("/", a.deleteAccount)
		})
	})

	return r
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, a.logger, err)
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.svc.Ping(ctx); err != nil {
		a.logger.WarnContext(ctx, "health check failed", slog.String("error", err.Error()))
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
