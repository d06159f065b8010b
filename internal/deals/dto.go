package deals

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/access"
	"github.com/lattice-crm/lattice-crm/internal/shared"
)

// CreateDealRequest is the create command payload. Tenant and owner path
// are intentionally absent: the gateway stamps them from the resolved
// binding, and any such fields a client smuggles into the JSON body are
// simply never decoded.
type CreateDealRequest struct {
	Title      string     `json:"title" validate:"required,min=1,max=200"`
	Amount     float64    `json:"amount" validate:"gte=0"`
	Visibility string     `json:"visibility" validate:"required,oneof=PRIVATE PUBLIC CONTROLLED"`
	PipelineID *uuid.UUID `json:"pipeline_id"`
	StageID    *uuid.UUID `json:"stage_id"`
}

// UpdateDealRequest carries a partial update as a field map, mirroring
// the jsonb patch shape of the storage RPC it replaces.
type UpdateDealRequest struct {
	Updates map[string]any `json:"updates" validate:"required,min=1"`
}

// updatableFields is the allow-list for partial updates. Identity and
// ownership fields (id, tenant_id, owner_role_path, created_by) are
// absent on purpose: they are dropped without error so a probing client
// learns nothing from the response.
var updatableFields = map[string]struct{}{
	"title":       {},
	"amount":      {},
	"visibility":  {},
	"pipeline_id": {},
	"stage_id":    {},
}

var protectedFields = map[string]struct{}{
	"id":              {},
	"tenant_id":       {},
	"owner_role_path": {},
	"created_by":      {},
	"created_at":      {},
	"updated_at":      {},
}

// sanitizeUpdates filters the raw patch through the allow-list and
// coerces values to their column types. Protected fields vanish
// silently; unknown fields and wrong-typed values fail with
// ErrInvalidInput.
func sanitizeUpdates(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for field, value := range raw {
		if _, protected := protectedFields[field]; protected {
			continue
		}
		if _, ok := updatableFields[field]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", shared.ErrInvalidInput, field)
		}

		switch field {
		case "title":
			s, ok := value.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%w: title must be a non-empty string", shared.ErrInvalidInput)
			}
			out[field] = s
		case "amount":
			f, err := coerceFloat(value)
			if err != nil || f < 0 {
				return nil, fmt.Errorf("%w: amount must be a non-negative number", shared.ErrInvalidInput)
			}
			out[field] = f
		case "visibility":
			s, ok := value.(string)
			if !ok || !access.Visibility(s).Valid() {
				return nil, fmt.Errorf("%w: visibility must be one of PRIVATE, PUBLIC, CONTROLLED", shared.ErrInvalidInput)
			}
			out[field] = access.Visibility(s)
		case "pipeline_id", "stage_id":
			id, err := coerceUUIDPtr(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be a uuid or null", shared.ErrInvalidInput, field)
			}
			out[field] = id
		}
	}
	return out, nil
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("not a number")
	}
}

func coerceUUIDPtr(value any) (*uuid.UUID, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("not a uuid string")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
