package repository

import (
	"context"

	"github.com/akinalp/atelier/models"
)

// PressRepository stores press and news links.
type PressRepository interface {
	Create(ctx context.Context, item *models.PressItem) error
	GetByID(ctx context.Context, id string) (*models.PressItem, error)
	// List returns items by position, then newest first. An empty kind
	// matches both kinds.
	List(ctx context.Context, publishedOnly bool, kind models.PressKind) ([]models.PressItem, error)
	Update(ctx context.Context, item *models.PressItem) error
	Delete(ctx context.Context, id string) error
}
