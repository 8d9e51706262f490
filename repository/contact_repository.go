package repository

import (
	"context"

	"github.com/akinalp/atelier/models"
)

// ContactRepository stores contact form messages.
type ContactRepository interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
	// List returns unread messages first, newest first within each group.
	List(ctx context.Context, limit int) ([]models.ContactMessage, error)
	MarkRead(ctx context.Context, id string, read bool) error
	Delete(ctx context.Context, id string) error
}
