package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/hostelcore/hostelcore/internal/audit/http"
	"github.com/hostelcore/hostelcore/internal/auth"
	"github.com/hostelcore/hostelcore/internal/authz"
	"github.com/hostelcore/hostelcore/internal/hostels"
	"github.com/hostelcore/hostelcore/internal/observability"
	"github.com/hostelcore/hostelcore/internal/overrides"
	"github.com/hostelcore/hostelcore/internal/platform/httpx"
	"github.com/hostelcore/hostelcore/internal/shared"
	"github.com/hostelcore/hostelcore/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	OverridesHandler *overrides.Handler
	AuditHandler     *audithttp.Handler
	HostelsHandler   *hostels.Handler
	JobHandler       *jobs.Handler
	Guards           authz.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mutating requests require the token from here in the X-CSRF-Token
	// header.
	r.Get("/auth/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(sess)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
	})

	params.AuthHandler.MountRoutes(r)

	r.Group(func(gr chi.Router) {
		gr.Use(params.Guards.RequireRoute(authz.RouteAdminOverrides))
		gr.Use(params.Guards.RequireAny(authz.CapOverridesEdit))
		params.OverridesHandler.MountRoutes(gr)
	})

	if params.AuditHandler != nil {
		r.Group(func(gr chi.Router) {
			gr.Use(params.Guards.RequireRoute(authz.RouteAdminAudit))
			gr.Use(params.Guards.RequireAny(authz.CapAuditView))
			params.AuditHandler.MountRoutes(gr)
		})
	}

	if params.HostelsHandler != nil {
		r.Group(func(gr chi.Router) {
			gr.Use(params.Guards.RequireRoute(authz.RouteSupervisorHostels))
			gr.Use(params.Guards.RequireAny(authz.CapHostelsSwitch))
			params.HostelsHandler.MountRoutes(gr)
		})
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
