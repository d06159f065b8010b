package identity

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Resolver resolves a principal id into its trusted binding.
type Resolver interface {
	Resolve(ctx context.Context, principalID uuid.UUID) (Binding, error)
}

// CoalescingResolver wraps a Resolver so that concurrent resolutions of
// the same principal share one profile read. Nothing is cached between
// calls: a resolution starting after a permission mutation commits
// always observes the mutation.
type CoalescingResolver struct {
	inner Resolver
	group singleflight.Group
}

// NewCoalescingResolver wraps the given resolver.
func NewCoalescingResolver(inner Resolver) *CoalescingResolver {
	return &CoalescingResolver{inner: inner}
}

// Resolve implements Resolver.
func (r *CoalescingResolver) Resolve(ctx context.Context, principalID uuid.UUID) (Binding, error) {
	resultChan := r.group.DoChan(principalID.String(), func() (interface{}, error) {
		return r.inner.Resolve(context.WithoutCancel(ctx), principalID)
	})
	select {
	case <-ctx.Done():
		return Binding{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Binding{}, res.Err
		}
		return res.Val.(Binding), nil
	}
}
