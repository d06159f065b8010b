package shared

import (
	"context"

	"github.com/google/uuid"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// PrincipalFromContext returns the authenticated principal id from the
// session, or false when the request is anonymous.
func PrincipalFromContext(ctx context.Context) (uuid.UUID, bool) {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.User())
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
