package repository

import (
	"context"

	"github.com/akinalp/atelier/models"
)

// ArtworkRepository stores artworks.
type ArtworkRepository interface {
	// Create appends the artwork at the end of the display order.
	Create(ctx context.Context, artwork *models.Artwork) error
	GetByID(ctx context.Context, id string) (*models.Artwork, error)
	GetBySlug(ctx context.Context, slug string) (*models.Artwork, error)
	// SlugTaken reports whether another artwork than excludeID uses slug.
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	ListAll(ctx context.Context) ([]models.Artwork, error)
	ListPublished(ctx context.Context, filter models.ArtworkFilter) ([]models.Artwork, error)
	// Update writes every editable column except status, which only moves
	// through CompareAndSetStatus.
	Update(ctx context.Context, artwork *models.Artwork) error
	// Lock is a no-op write on the row. Run first inside a transaction, it
	// takes SQLite's write lock before anything is read.
	Lock(ctx context.Context, id string) error
	// Delete fails with pkg.ErrConflict while the artwork is reserved or an
	// open order points at it.
	Delete(ctx context.Context, id string) error
	UpdatePosition(ctx context.Context, id string, position int) error

	// CompareAndSetStatus moves the artwork from one status to another and
	// reports whether it did. requirePublished also demands published = 1.
	CompareAndSetStatus(ctx context.Context, id string, from, to models.ArtworkStatus, requirePublished bool) (bool, error)
}
