package deals

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/platform/httpx"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// Handler wires HTTP endpoints for the deal gateway.
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

// MountRoutes registers deal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{dealID}", h.handleGet)
	r.Patch("/{dealID}", h.handleUpdate)
	r.Delete("/{dealID}", h.handleDelete)
}

type dealResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Amount        float64    `json:"amount"`
	Visibility    string     `json:"visibility"`
	OwnerRolePath string     `json:"owner_role_path"`
	PipelineID    *uuid.UUID `json:"pipeline_id,omitempty"`
	StageID       *uuid.UUID `json:"stage_id,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toDealResponse(d Deal) dealResponse {
	return dealResponse{
		ID:            d.ID.String(),
		Title:         d.Title,
		Amount:        d.Amount,
		Visibility:    string(d.Visibility),
		OwnerRolePath: string(d.OwnerRolePath),
		PipelineID:    d.PipelineID,
		StageID:       d.StageID,
		CreatedBy:     d.CreatedBy.String(),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req CreateDealRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	deal, err := h.service.Create(r.Context(), principalID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDealResponse(deal))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	list, err := h.service.List(r.Context(), principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]dealResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toDealResponse(d))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	dealID, err := uuid.Parse(chi.URLParam(r, "dealID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	deal, err := h.service.Get(r.Context(), principalID, dealID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDealResponse(deal))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	dealID, err := uuid.Parse(chi.URLParam(r, "dealID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	var req UpdateDealRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "updates map required")
		return
	}
	deal, err := h.service.Update(r.Context(), principalID, dealID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDealResponse(deal))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	dealID, err := uuid.Parse(chi.URLParam(r, "dealID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.Delete(r.Context(), principalID, dealID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
