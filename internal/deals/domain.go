package deals

import (
	"time"

	"github.com/google/uuid"

	"github.com/lattice-crm/lattice-crm/internal/access"
	"github.com/lattice-crm/lattice-crm/internal/hierarchy"
)

// Deal is the CRM resource the engine authorizes. TenantID and
// OwnerRolePath are stamped from the creator's binding at create time
// and are immutable afterwards.
type Deal struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Title         string
	Amount        float64
	Visibility    access.Visibility
	OwnerRolePath hierarchy.Path
	PipelineID    *uuid.UUID
	StageID       *uuid.UUID
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Target adapts the deal for the decision engine.
func (d Deal) Target() access.Target {
	return access.Target{
		TenantID:      d.TenantID,
		OwnerRolePath: d.OwnerRolePath,
		Visibility:    d.Visibility,
	}
}
