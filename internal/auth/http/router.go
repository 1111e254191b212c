package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tally/internal/auth/service"
	"github.com/aussiebroadwan/tally/internal/auth/store"
	"github.com/aussiebroadwan/tally/internal/auth/tokens"
	"github.com/aussiebroadwan/tally/pkg/authsdk"
	"github.com/aussiebroadwan/tally/pkg/httpx"
	"github.com/aussiebroadwan/tally/pkg/jwtx"
	"github.com/aussiebroadwan/tally/pkg/slogx"

	_ "github.com/aussiebroadwan/tally/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	limits       httpx.RateLimits
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	UserService       *service.UserService
	CredentialService *service.CredentialService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	limits httpx.RateLimits,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerCredentials()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tally Authentication Service API
//	@version		0.1.0
//	@description	Email and password accounts with cookie-based sessions, plus short-lived delegated credentials for the sync backend and the database proxy.
//	@description
//	@description	Access and sync tokens are RS256 and verifiable with the JWKS endpoint. Refresh and database tokens are HS256 and never leave the trusted boundary.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/tally
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		https
//
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						access_token
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// requireSession verifies the access cookie before the handler runs.
func (r *Router) requireSession() httpx.Middleware {
	return httpx.RequireSession(
		func(req *http.Request) (*jwtx.Claims, error) {
			return r.CredentialService.VerifyCookieToken(req, tokens.Access)
		},
		func(w http.ResponseWriter, req *http.Request, err error) {
			if err != nil {
				serverError(w, req, "session verification failed", err)
				return
			}
			authsdk.ErrUnauthenticated.WriteError(w)
		},
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		UserService:       r.UserService,
		CredentialService: r.CredentialService,
	}

	// Credential guessing endpoints - strict rate limit by IP
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignUp),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/auth/signin",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.limits.Moderate),
		),
	)

	// Sign-out must work without a valid session
	r.Mux.Handle("POST /v1/auth/signout",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)

	// Session routes are IP limited before the signature check runs
	r.Mux.Handle("GET /v1/auth/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.RateLimitByIP(r.limits.Lenient),
			r.requireSession(),
			httpx.RateLimitByUser(r.limits.Lenient),
		),
	)
}

func (r *Router) registerCredentials() {
	h := &CredentialsHandler{CredentialService: r.CredentialService}

	r.Mux.Handle("POST /v1/auth/credentials/db",
		httpx.Chain(http.HandlerFunc(h.HandleDB),
			httpx.RateLimitByIP(r.limits.Moderate),
			r.requireSession(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
	r.Mux.Handle("POST /v1/auth/credentials/sync",
		httpx.Chain(http.HandlerFunc(h.HandleSync),
			httpx.RateLimitByIP(r.limits.Moderate),
			r.requireSession(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.CredentialService),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	// Monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.CredentialService),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
}
