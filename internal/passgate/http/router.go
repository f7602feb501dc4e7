package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/passgate/passgate/internal/passgate/service"
	"github.com/passgate/passgate/internal/passgate/session"
	"github.com/passgate/passgate/internal/passgate/store"
	"github.com/passgate/passgate/pkg/httpx"
	"github.com/passgate/passgate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	sessions *session.Manager

	AuthService *service.AuthService
}

func NewRouter(buildVersion string, st store.Store, sessions *session.Manager, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		sessions:     sessions,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	withSession := SessionMiddleware(r.sessions)

	loginHandler := &LoginHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleLogin), withSession),
	)

	verifyHandler := &VerifyHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/login/verify",
		httpx.Chain(http.HandlerFunc(verifyHandler.HandleVerify), withSession),
	)

	logoutHandler := &LogoutHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(logoutHandler.HandleLogout), withSession),
	)

	sessionHandler := &SessionHandler{}
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(sessionHandler.HandleSession), withSession),
	)

	// The profile endpoint is the protected resource: only sessions that
	// have completed both factors may read it.
	profileHandler := &ProfileHandler{}
	r.Mux.Handle("GET /v1/profile",
		httpx.Chain(http.HandlerFunc(profileHandler.HandleProfile),
			withSession,
			RequireAuthenticated(),
		),
	)
}

func (r *Router) registerSystem() {
	// Health probes sit outside the session middleware so that monitoring
	// traffic never allocates session state.
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
