package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aussiebroadwan/stitch/internal/stitchd/service"
	"github.com/aussiebroadwan/stitch/internal/stitchd/store"
	"github.com/aussiebroadwan/stitch/pkg/httpx"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/metrics"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

const (
	clientAPI = "/api/client/v2.0"
	appAPI    = clientAPI + "/app/{app}"

	// MaxRequestBodyBytes bounds every request body.
	MaxRequestBodyBytes = 1 << 20
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	handler     http.Handler
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	registry     *prometheus.Registry

	store           store.Store
	TokenService    *service.TokenService
	AuthService     *service.AuthService
	APIKeyService   *service.APIKeyService
	FunctionService *service.FunctionService
}

// NewRouter wires the global middleware. reg receives the HTTP metrics and is
// served on /metrics.
func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	reg *prometheus.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		registry:     reg,
		logger:       logger,
	}

	// metrics sit directly on the mux so they see the matched pattern
	r.handler = metrics.HTTPMiddleware(reg)(r.Mux)

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		middleware.Recoverer,
		middleware.RequestSize(MaxRequestBodyBytes),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAPIKeys()
	r.registerFunctions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.handler, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// login and link share a route; linking additionally needs an access token
	r.Mux.Handle("POST "+appAPI+"/auth/providers/{provider}/login",
		httpx.Chain(NewLoginHandler(r.AuthService, r.verifier),
			httpx.RateLimitByIPAndPathValue(httpx.StrictLimit, "provider"),
		),
	)

	r.Mux.Handle("POST "+appAPI+"/auth/providers/{provider}/register",
		httpx.Chain(&RegisterHandler{Auth: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET "+clientAPI+"/auth/profile",
		httpx.Chain(&ProfileHandler{Auth: r.AuthService},
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	session := &SessionHandler{Tokens: r.TokenService}
	r.Mux.Handle("POST "+clientAPI+"/auth/session",
		httpx.Chain(http.HandlerFunc(session.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE "+clientAPI+"/auth/session",
		httpx.Chain(http.HandlerFunc(session.HandleDelete),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAPIKeys() {
	h := &APIKeysHandler{Keys: r.APIKeyService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			RefreshTokenMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST "+clientAPI+"/auth/api_keys", secured(h.HandleCreate))
	r.Mux.Handle("GET "+clientAPI+"/auth/api_keys", secured(h.HandleList))
	r.Mux.Handle("GET "+clientAPI+"/auth/api_keys/{id}", secured(h.HandleGet))
	r.Mux.Handle("DELETE "+clientAPI+"/auth/api_keys/{id}", secured(h.HandleDelete))
	r.Mux.Handle("PUT "+clientAPI+"/auth/api_keys/{id}/enable", secured(h.HandleEnable))
	r.Mux.Handle("PUT "+clientAPI+"/auth/api_keys/{id}/disable", secured(h.HandleDisable))
}

func (r *Router) registerFunctions() {
	r.Mux.Handle("POST "+appAPI+"/functions/call",
		httpx.Chain(&FunctionsHandler{Functions: r.FunctionService},
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /metrics", metrics.Handler(r.registry))
}
