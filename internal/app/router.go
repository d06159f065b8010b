package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lattice-crm/lattice-crm/internal/auth"
	"github.com/lattice-crm/lattice-crm/internal/deals"
	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
	"github.com/lattice-crm/lattice-crm/internal/identity"
	"github.com/lattice-crm/lattice-crm/internal/observability"
	"github.com/lattice-crm/lattice-crm/internal/permissions"
	"github.com/lattice-crm/lattice-crm/internal/shared"
	"github.com/lattice-crm/lattice-crm/internal/tenants"
	"github.com/lattice-crm/lattice-crm/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler        *auth.Handler
	RolesHandler       *hierarchy.Handler
	PermissionsHandler *permissions.Handler
	PrincipalsHandler  *identity.Handler
	DealsHandler       *deals.Handler
	TenantsHandler     *tenants.Handler
	JobsHandler        *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
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

	if params.Metrics != nil {
		r.Get("/metrics", params.Metrics.Handler().ServeHTTP)
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/roles", params.RolesHandler.MountRoutes)
	r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	r.Route("/principals", params.PrincipalsHandler.MountRoutes)
	r.Route("/deals", params.DealsHandler.MountRoutes)

	r.Route("/tenants", func(sub chi.Router) {
		sub.Use(OperatorOnly(params.Config.OperatorToken, params.Logger))
		params.TenantsHandler.MountRoutes(sub)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", func(sub chi.Router) {
			sub.Use(OperatorOnly(params.Config.OperatorToken, params.Logger))
			params.JobsHandler.MountRoutes(sub)
		})
	}

	return r
}

// NewResolverAdapters wires the identity and hierarchy services into the
// caller-resolver interfaces the role and permission handlers expect.
func NewResolverAdapters(resolver identity.Resolver, hierarchySvc *hierarchy.Service) (hierarchy.CallerResolver, permissions.CallerResolver, permissions.RoleDirectory) {
	return hierarchyCallerResolver{identity: resolver},
		permissionsCallerResolver{identity: resolver},
		roleDirectory{hierarchy: hierarchySvc}
}
