package permissions

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a globally unique capability token. Immutable once
// referenced; slug uniqueness is enforced by the registry.
type Permission struct {
	ID          uuid.UUID
	Slug        string
	Description string
	CreatedAt   time.Time
}
