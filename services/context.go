package services

import (
	"context"
	"fmt"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
)

type contextKey struct{}

// WithUser returns a context carrying the authenticated user. The auth
// middleware calls it; services read it back with UserFromContext.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(contextKey{}).(*models.User)
	return user
}

// requireAdmin guards every CMS and store mutation, whoever the caller is.
func requireAdmin(ctx context.Context) (*models.User, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, fmt.Errorf("%w: authentication required", pkg.ErrUnauthorized)
	}
	if !user.IsAdmin() {
		return nil, fmt.Errorf("%w: admin access required", pkg.ErrForbidden)
	}
	return user, nil
}

// SystemContext marks work done by the server itself (CLI commands, the
// reservation sweeper) as admin work.
func SystemContext(ctx context.Context) context.Context {
	return WithUser(ctx, &models.User{ID: "", Name: "system", Role: models.RoleAdmin})
}
