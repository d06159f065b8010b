package hierarchy

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/platform/httpx"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Caller is the resolved view of the requester this package needs:
// which tenant they belong to and whether they hold a permission. The
// app layer adapts the full binding down to this.
type Caller struct {
	TenantID uuid.UUID
	Can      func(slug string) bool
}

// CallerResolver resolves a principal id into a Caller.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, principalID uuid.UUID) (Caller, error)
}

// Permission slugs gating the role endpoints.
const (
	permRolesView = "roles.view"
	permRolesEdit = "roles.edit"
)

// Handler wires HTTP endpoints for the role tree.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  CallerResolver
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver CallerResolver) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{roleID}", h.handleGet)
	r.Post("/{roleID}/move", h.handleMove)
	r.Delete("/{roleID}", h.handleDelete)
}

type createRoleRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=120"`
	ParentRoleID  string `json:"parent_role_id" validate:"required,uuid"`
	DefinitionKey string `json:"definition_key" validate:"required"`
}

type moveRoleRequest struct {
	NewParentID string `json:"new_parent_id" validate:"required,uuid"`
}

type roleResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ParentRoleID *string   `json:"parent_role_id"`
	Path         string    `json:"path"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toRoleResponse(role Role) roleResponse {
	resp := roleResponse{
		ID:        role.ID.String(),
		Name:      role.Name,
		Path:      string(role.Path),
		CreatedAt: role.CreatedAt,
		UpdatedAt: role.UpdatedAt,
	}
	if role.ParentRoleID != nil {
		s := role.ParentRoleID.String()
		resp.ParentRoleID = &s
	}
	return resp
}

// caller authenticates the request and checks the required permission.
// Writes the response itself and returns ok=false when the request must
// not proceed.
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

// roleInTenant loads a role and folds foreign-tenant rows into 404.
func (h *Handler) roleInTenant(ctx context.Context, c Caller, roleID uuid.UUID) (Role, error) {
	role, err := h.service.GetRole(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	if role.TenantID != c.TenantID {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r, permRolesView)
	if !ok {
		return
	}
	roles, err := h.service.ListRoles(r.Context(), c.TenantID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r, permRolesView)
	if !ok {
		return
	}
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	role, err := h.roleInTenant(r.Context(), c, roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r, permRolesEdit)
	if !ok {
		return
	}
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	parentID, err := uuid.Parse(req.ParentRoleID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parent_role_id must be a uuid")
		return
	}
	role, err := h.service.CreateRole(r.Context(), c.TenantID, parentID, req.Name, req.DefinitionKey)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r, permRolesEdit)
	if !ok {
		return
	}
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	var req moveRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	newParentID, err := uuid.Parse(req.NewParentID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "new_parent_id must be a uuid")
		return
	}
	if _, err := h.roleInTenant(r.Context(), c, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.MoveRole(r.Context(), roleID, newParentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r, permRolesEdit)
	if !ok {
		return
	}
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if _, err := h.roleInTenant(r.Context(), c, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
