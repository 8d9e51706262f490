package repository

import (
	"context"
	"time"

	"github.com/akinalp/atelier/models"
)

// OrderRepository stores store orders. Address and phone arrive already
// encrypted when encryption is configured.
type OrderRepository interface {
	// Create inserts an order whose ID and Reference are set by the caller.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByReference(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	// CompareAndSetStatus moves the order from one status to another and
	// reports whether it did.
	CompareAndSetStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)
	// ListExpired returns pending orders whose hold ended before now.
	ListExpired(ctx context.Context, now time.Time) ([]models.Order, error)
	HasOpenForArtwork(ctx context.Context, artworkID string) (bool, error)
}
