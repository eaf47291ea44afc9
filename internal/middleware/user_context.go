package middleware

import (
	"context"

	"tutoring-platform/internal/models"
)

// userContextKey is unexported so only this package can mint context
// values under it; UserContextKey is exported for tests and for the
// external auth collaborator (session-cookie validation, out of scope per
// spec.md §1) that populates it upstream of every handler in this package.
type contextKey string

const UserContextKey contextKey = "user"

// GetUserFromContext reads the *models.User an upstream auth middleware
// attached to the request context.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// WithUser attaches user to ctx under UserContextKey.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
