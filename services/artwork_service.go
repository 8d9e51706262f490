package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/slug"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

// maxSlugAttempts bounds the -2, -3, ... suffix search.
const maxSlugAttempts = 100

// ArtworkService manages the portfolio. Mutations are admin only; the
// published queries back the public pages.
type ArtworkService interface {
	Create(ctx context.Context, req *models.CreateArtworkRequest) (*models.Artwork, error)
	Update(ctx context.Context, id string, req *models.UpdateArtworkRequest) (*models.Artwork, error)
	// Delete fails with ErrConflict while an open order holds the artwork.
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, req *models.ReorderRequest) ([]models.Artwork, error)
	GetByID(ctx context.Context, id string) (*models.Artwork, error)
	ListAll(ctx context.Context) ([]models.Artwork, error)

	ListPublished(ctx context.Context, filter models.ArtworkFilter) ([]models.Artwork, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Artwork, error)
}

type artworkService struct {
	db       *sql.DB
	repo     repository.ArtworkRepository
	hub      ws.Broadcaster
	currency string
}

func NewArtworkService(
	db *sql.DB,
	repo repository.ArtworkRepository,
	hub ws.Broadcaster,
	currency string,
) ArtworkService {
	return &artworkService{
		db:       db,
		repo:     repo,
		hub:      hub,
		currency: currency,
	}
}

func (s *artworkService) Create(ctx context.Context, req *models.CreateArtworkRequest) (*models.Artwork, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	base := req.Slug
	if base == "" {
		base = slug.Make(req.Title)
	}
	unique, err := uniqueSlug(ctx, s.repo, base, "")
	if err != nil {
		return nil, err
	}

	artwork := &models.Artwork{
		Slug:        unique,
		Title:       req.Title,
		Description: req.Description,
		Medium:      req.Medium,
		Year:        req.Year,
		WidthCM:     req.WidthCM,
		HeightCM:    req.HeightCM,
		DepthCM:     req.DepthCM,
		PriceCents:  req.PriceCents,
		Currency:    s.currency,
		Status:      req.Status,
		ImageURL:    req.ImageURL,
		Featured:    req.Featured,
		Published:   req.Published,
	}
	if err := s.repo.Create(ctx, artwork); err != nil {
		return nil, err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpArtworkCreate, Data: artwork})
	return artwork, nil
}

// Update applies a partial update. A reserved artwork keeps its status
// until its order settles, and an artwork with an open order cannot be put
// back on sale.
//
// Update races PlaceOrder: the admin reads the artwork as available, a
// buyer reserves it, and writing the stale row back would release the
// reservation while the order stays pending. Two things prevent that. The
// whole read-patch-write runs in one transaction that starts with
// ArtworkRepository.Lock, so a concurrent reservation either commits before
// the read or waits for this commit. And status is never part of the row
// write: it moves only through a compare-and-set from the status that was
// read.
func (s *artworkService) Update(ctx context.Context, id string, req *models.UpdateArtworkRequest) (*models.Artwork, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	var artwork *models.Artwork
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteArtworkRepo(tx)
		if err := repo.Lock(ctx, id); err != nil {
			return err
		}

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		from := current.Status
		if req.Status != nil && *req.Status != from {
			if from == models.ArtworkReserved {
				return fmt.Errorf("%w: artwork is reserved by a pending order", pkg.ErrConflict)
			}
			open, err := repository.NewSQLiteOrderRepo(tx).HasOpenForArtwork(ctx, id)
			if err != nil {
				return err
			}
			if open {
				return fmt.Errorf("%w: artwork has an open order", pkg.ErrConflict)
			}
		}

		if req.Slug != nil && *req.Slug != current.Slug {
			unique, err := uniqueSlug(ctx, repo, *req.Slug, current.ID)
			if err != nil {
				return err
			}
			req.Slug = &unique
		}

		req.Apply(current)
		if err := current.Check(); err != nil {
			return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
		}

		to := current.Status
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		if to != from {
			moved, err := repo.CompareAndSetStatus(ctx, id, from, to, false)
			if err != nil {
				return err
			}
			if !moved {
				return fmt.Errorf("%w: artwork status changed concurrently", pkg.ErrConflict)
			}
			current.Status = to
		}

		artwork = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpArtworkUpdate, Data: artwork})
	return artwork, nil
}

// Delete removes the artwork. The repository refuses, with ErrConflict,
// while it is reserved or has an open order.
func (s *artworkService) Delete(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpArtworkDelete, Data: ws.DeletedData{ID: id}})
	return nil
}

// Reorder writes every position in one transaction; an unknown ID rolls the
// whole request back.
func (s *artworkService) Reorder(ctx context.Context, req *models.ReorderRequest) ([]models.Artwork, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteArtworkRepo(tx)
		for _, item := range req.Items {
			if err := repo.UpdatePosition(ctx, item.ID, item.Position); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	artworks, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpArtworkReorder, Data: artworks})
	return artworks, nil
}

func (s *artworkService) GetByID(ctx context.Context, id string) (*models.Artwork, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *artworkService) ListAll(ctx context.Context) ([]models.Artwork, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx)
}

func (s *artworkService) ListPublished(ctx context.Context, filter models.ArtworkFilter) ([]models.Artwork, error) {
	return s.repo.ListPublished(ctx, filter)
}

// GetPublishedBySlug hides drafts behind ErrNotFound.
func (s *artworkService) GetPublishedBySlug(ctx context.Context, slugValue string) (*models.Artwork, error) {
	artwork, err := s.repo.GetBySlug(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	if !artwork.Published {
		return nil, pkg.ErrNotFound
	}
	return artwork, nil
}

// uniqueSlug returns base, or base-2, base-3, ... whichever is free.
func uniqueSlug(ctx context.Context, repo repository.ArtworkRepository, base, excludeID string) (string, error) {
	if base == "" {
		base = "artwork"
	}
	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := slug.WithSuffix(base, n)
		taken, err := repo.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free slug for %q", pkg.ErrConflict, base)
}
