package tenants

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/platform/httpx"
)

type operatorContextKey struct{}

// ContextWithOperator stores a verified operator credential in context.
// Only the operator-token middleware calls this.
func ContextWithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// OperatorFromContext extracts the operator credential, if present.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorContextKey{}).(Operator)
	return op, ok
}

// Handler wires the operator-only tenant endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers tenant routes on the provided router. The
// router must already be wrapped by the operator-token middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleProvision)
	r.Get("/{tenantID}", h.handleGet)
	r.Delete("/{tenantID}", h.handleRemove)
}

type provisionRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=200"`
	OwnerEmail    string `json:"owner_email" validate:"required,email"`
	OwnerName     string `json:"owner_name" validate:"required,min=1,max=200"`
	OwnerPassword string `json:"owner_password" validate:"required,min=8"`
}

type tenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type provisionResponse struct {
	Tenant      tenantResponse `json:"tenant"`
	OwnerRoleID string         `json:"owner_role_id"`
	ProfileID   string         `json:"profile_id"`
}

func toTenantResponse(t Tenant) tenantResponse {
	return tenantResponse{ID: t.ID.String(), Name: t.Name, Slug: t.Slug, CreatedAt: t.CreatedAt}
}

func (h *Handler) operator(w http.ResponseWriter, r *http.Request) (Operator, bool) {
	op, ok := OperatorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return Operator{}, false
	}
	return op, true
}

func (h *Handler) handleProvision(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operator(w, r)
	if !ok {
		return
	}
	var req provisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	res, err := h.service.Provision(r.Context(), op, ProvisionParams{
		Name:          req.Name,
		OwnerEmail:    req.OwnerEmail,
		OwnerName:     req.OwnerName,
		OwnerPassword: req.OwnerPassword,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, provisionResponse{
		Tenant:      toTenantResponse(res.Tenant),
		OwnerRoleID: res.OwnerRoleID.String(),
		ProfileID:   res.ProfileID.String(),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operator(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListTenants(r.Context(), op)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]tenantResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTenantResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operator(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	tenant, err := h.service.GetTenant(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTenantResponse(tenant))
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operator(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.Remove(r.Context(), op, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
