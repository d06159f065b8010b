package identity

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lattice-crm/lattice-crm/internal/permissions"
	"github.com/lattice-crm/lattice-crm/internal/platform/httpx"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// RoleDirectory answers which tenant a role belongs to, so principals
// can only be bound to roles of the caller's own tenant.
type RoleDirectory interface {
	RoleTenant(ctx context.Context, roleID uuid.UUID) (uuid.UUID, error)
}

// Handler wires HTTP endpoints for principal management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     RoleDirectory
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roles RoleDirectory) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		roles:     roles,
		validator: validator.New(),
	}
}

// MountRoutes registers principal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Post("/", h.handleCreate)
}

type createPrincipalRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   string `json:"role_id" validate:"required,uuid"`
}

type principalResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	RoleID      string    `json:"role_id"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

type bindingResponse struct {
	PrincipalID string   `json:"principal_id"`
	RoleID      string   `json:"role_id"`
	RolePath    string   `json:"role_path"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	binding, err := h.service.Resolve(r.Context(), principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bindingResponse{
		PrincipalID: binding.PrincipalID.String(),
		RoleID:      binding.RoleID.String(),
		RolePath:    string(binding.RolePath),
		Permissions: binding.Permissions.Slugs(),
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	binding, err := h.service.Resolve(r.Context(), principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !binding.HasPermission(permissions.PermRolesEdit) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	var req createPrincipalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role_id must be a uuid")
		return
	}

	tenantID, err := h.roles.RoleTenant(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if tenantID != binding.TenantID {
		// Foreign roles read as absent.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	profile, err := h.service.CreateProfile(r.Context(), binding.TenantID, roleID, req.Email, req.Name, string(hash))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, principalResponse{
		ID:          profile.ID.String(),
		Email:       profile.Email,
		Name:        profile.Name,
		RoleID:      profile.RoleID.String(),
		Permissions: profile.CachedPermissions,
		CreatedAt:   profile.CreatedAt,
	})
}
