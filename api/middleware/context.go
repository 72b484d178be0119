package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/flintflours/storefront-backend/pkg/auth"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxEmail     contextKey = "email"
	ctxRole      contextKey = "actor_role"
	ctxRequestID contextKey = "request_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// UserUUIDFromContext returns the authenticated user id, or uuid.Nil for
// anonymous requests.
func UserUUIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxEmail).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

// WithIdentity injects a verified identity into the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, identity.UserID.String())
	ctx = context.WithValue(ctx, ctxEmail, identity.Email)
	return context.WithValue(ctx, ctxRole, identity.Role)
}
