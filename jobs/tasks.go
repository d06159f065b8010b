package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermCacheRefresh rebuilds one role's profile caches on demand.
	TaskPermCacheRefresh = "permcache:refresh"
	// TaskPermCacheReconcile sweeps every role's caches back to the
	// live role-permission rows. Drift repair only; the transactional
	// invalidation protocol is the propagation path.
	TaskPermCacheReconcile = "permcache:reconcile"
)

// PermCacheRefreshPayload names the role whose profile caches should be
// rebuilt.
type PermCacheRefreshPayload struct {
	RoleID uuid.UUID `json:"role_id"`
}

// CacheMaintainer is the slice of the identity service the worker needs.
type CacheMaintainer interface {
	RecomputeCacheForRole(ctx context.Context, roleID uuid.UUID) error
	ReconcileAll(ctx context.Context) error
}

// NewPermCacheRefreshTask constructs an Asynq task.
func NewPermCacheRefreshTask(payload PermCacheRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermCacheRefresh, data), nil
}

// NewPermCacheReconcileTask constructs the nightly sweep task.
func NewPermCacheReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskPermCacheReconcile, nil)
}

// HandlePermCacheRefresh returns the handler for TaskPermCacheRefresh.
func HandlePermCacheRefresh(maintainer CacheMaintainer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PermCacheRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return maintainer.RecomputeCacheForRole(ctx, payload.RoleID)
	}
}

// HandlePermCacheReconcile returns the handler for TaskPermCacheReconcile.
func HandlePermCacheReconcile(maintainer CacheMaintainer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		return maintainer.ReconcileAll(ctx)
	}
}
