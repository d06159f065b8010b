package tenants

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level isolation boundary. Every role, profile and
// deal belongs to exactly one tenant, and nothing crosses the line.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Operator is the platform service credential. Provisioning and removal
// of tenants require an Operator value; holding one is proven by the
// transport layer before any service method is reachable. It is a
// distinct principal kind, not a bypass switch on regular bindings.
type Operator struct {
	subject string
}

// NewOperator mints an operator credential for the given subject label.
// Only the operator-token middleware calls this.
func NewOperator(subject string) Operator {
	return Operator{subject: subject}
}

// Subject returns the label the credential was minted with, for audit
// logging.
func (o Operator) Subject() string {
	if o.subject == "" {
		return "operator"
	}
	return o.subject
}
