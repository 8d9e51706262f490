package repository

import (
	"context"
	"time"

	"github.com/akinalp/atelier/models"
)

// UserRepository stores accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// CreateBootstrap inserts a self-registered account. The role is decided
	// by the same statement: the first account becomes admin, later ones are
	// members. With open false only the first account is accepted and later
	// calls fail with pkg.ErrForbidden.
	CreateBootstrap(ctx context.Context, user *models.User, open bool) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	UpdatePassword(ctx context.Context, userID, newPasswordHash string) error
	// UpdateRole fails with pkg.ErrConflict when it would demote the last
	// admin.
	UpdateRole(ctx context.Context, userID string, role models.Role) error
	UpdateLanguage(ctx context.Context, userID, language string) error
	// TouchLastSeen records when the user was last connected to the admin feed.
	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
	// Delete removes the user; sessions and reset tokens cascade. Deleting
	// the last admin fails with pkg.ErrConflict.
	Delete(ctx context.Context, id string) error
}
