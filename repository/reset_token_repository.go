package repository

import (
	"context"
	"time"

	"github.com/akinalp/atelier/models"
)

// PasswordResetRepository stores password reset tokens by SHA-256 hash.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	// GetByTokenHash returns pkg.ErrNotFound for an unknown hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) error
	// GetLatestByUserID backs the resend cooldown.
	GetLatestByUserID(ctx context.Context, userID string) (*models.PasswordResetToken, error)
}
