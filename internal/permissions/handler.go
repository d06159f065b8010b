package permissions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/platform/httpx"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Caller is the resolved view of the requester: tenant membership plus
// permission membership. The app layer adapts the full binding down to
// this.
type Caller struct {
	TenantID uuid.UUID
	Can      func(slug string) bool
}

// CallerResolver resolves a principal id into a Caller.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, principalID uuid.UUID) (Caller, error)
}

// RoleDirectory answers which tenant a role belongs to, so grant and
// revoke stay inside the caller's tenant.
type RoleDirectory interface {
	RoleTenant(ctx context.Context, roleID uuid.UUID) (uuid.UUID, error)
}

// Handler wires HTTP endpoints for the permission registry and role
// grants.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  CallerResolver
	roles     RoleDirectory
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver CallerResolver, roles RoleDirectory) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		roles:     roles,
		validator: validator.New(),
	}
}

// MountRoutes registers permission routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/roles/{roleID}/grant", h.handleGrant)
	r.Post("/roles/{roleID}/revoke", h.handleRevoke)
	r.Put("/roles/{roleID}", h.handleSet)
}

type grantRequest struct {
	Slug string `json:"slug" validate:"required,min=1"`
}

type setPermissionsRequest struct {
	Slugs []string `json:"slugs" validate:"required,dive,min=1"`
}

type permissionResponse struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request, requiredPerm string) (Caller, bool) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return Caller{}, false
	}
	c, err := h.resolver.ResolveCaller(r.Context(), principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return Caller{}, false
	}
	if !c.Can(requiredPerm) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return Caller{}, false
	}
	return c, true
}

// tenantRole folds foreign-tenant roles into 404.
func (h *Handler) tenantRole(ctx context.Context, c Caller, raw string) (uuid.UUID, error) {
	roleID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.ErrNotFound
	}
	tenantID, err := h.roles.RoleTenant(ctx, roleID)
	if err != nil {
		return uuid.Nil, err
	}
	if tenantID != c.TenantID {
		return uuid.Nil, shared.ErrNotFound
	}
	return roleID, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r, PermPermissionsView); !ok {
		return
	}
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID.String(), Slug: p.Slug, Description: p.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	h.handleEdge(w, r, h.service.Grant)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.handleEdge(w, r, h.service.Revoke)
}

func (h *Handler) handleEdge(w http.ResponseWriter, r *http.Request, mutate func(context.Context, uuid.UUID, uuid.UUID) error) {
	c, ok := h.caller(w, r, PermPermissionsEdit)
	if !ok {
		return
	}
	roleID, err := h.tenantRole(r.Context(), c, chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "slug is required")
		return
	}
	perm, err := h.service.GetPermissionBySlug(r.Context(), req.Slug)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := mutate(r.Context(), roleID, perm.ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r, PermPermissionsEdit)
	if !ok {
		return
	}
	roleID, err := h.tenantRole(r.Context(), c, chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req setPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "slugs list required")
		return
	}
	ids := make([]uuid.UUID, 0, len(req.Slugs))
	for _, slug := range req.Slugs {
		perm, err := h.service.GetPermissionBySlug(r.Context(), slug)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		ids = append(ids, perm.ID)
	}
	if err := h.service.SetRolePermissions(r.Context(), roleID, ids); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
