package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
)

type sqliteArtworkRepo struct {
	db database.TxQuerier
}

// NewSQLiteArtworkRepo returns the SQLite ArtworkRepository.
func NewSQLiteArtworkRepo(db database.TxQuerier) ArtworkRepository {
	return &sqliteArtworkRepo{db: db}
}

const artworkColumns = `id, slug, title, description, medium, year, width_cm, height_cm, depth_cm,
	price_cents, currency, status, image_url, featured, published, position, created_at, updated_at`

func scanArtwork(s scanner, a *models.Artwork) error {
	return s.Scan(
		&a.ID, &a.Slug, &a.Title, &a.Description, &a.Medium, &a.Year,
		&a.WidthCM, &a.HeightCM, &a.DepthCM,
		&a.PriceCents, &a.Currency, &a.Status, &a.ImageURL,
		&a.Featured, &a.Published, &a.Position, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (r *sqliteArtworkRepo) Create(ctx context.Context, a *models.Artwork) error {
	query := `
		INSERT INTO artworks (id, slug, title, description, medium, year, width_cm, height_cm, depth_cm,
			price_cents, currency, status, image_url, featured, published, position)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM artworks))
		RETURNING id, position, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		a.Slug, a.Title, a.Description, a.Medium, a.Year, a.WidthCM, a.HeightCM, a.DepthCM,
		a.PriceCents, a.Currency, a.Status, a.ImageURL, boolToInt(a.Featured), boolToInt(a.Published),
	).Scan(&a.ID, &a.Position, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug already in use", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create artwork: %w", err)
	}
	return nil
}

func (r *sqliteArtworkRepo) GetByID(ctx context.Context, id string) (*models.Artwork, error) {
	a := &models.Artwork{}
	if err := scanArtwork(r.db.QueryRowContext(ctx, `SELECT `+artworkColumns+` FROM artworks WHERE id = ?`, id), a); err != nil {
		return nil, notFound(err, "get artwork by id")
	}
	return a, nil
}

func (r *sqliteArtworkRepo) GetBySlug(ctx context.Context, slug string) (*models.Artwork, error) {
	a := &models.Artwork{}
	if err := scanArtwork(r.db.QueryRowContext(ctx, `SELECT `+artworkColumns+` FROM artworks WHERE slug = ?`, slug), a); err != nil {
		return nil, notFound(err, "get artwork by slug")
	}
	return a, nil
}

func (r *sqliteArtworkRepo) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM artworks WHERE slug = ? AND id != ?`, slug, excludeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteArtworkRepo) list(ctx context.Context, where string, args []any, limit int) ([]models.Artwork, error) {
	query := `SELECT ` + artworkColumns + ` FROM artworks`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY position, created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artworks: %w", err)
	}
	defer rows.Close()

	artworks := []models.Artwork{}
	for rows.Next() {
		var a models.Artwork
		if err := scanArtwork(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan artwork row: %w", err)
		}
		artworks = append(artworks, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artwork rows: %w", err)
	}
	return artworks, nil
}

func (r *sqliteArtworkRepo) ListAll(ctx context.Context) ([]models.Artwork, error) {
	return r.list(ctx, "", nil, 0)
}

func (r *sqliteArtworkRepo) ListPublished(ctx context.Context, filter models.ArtworkFilter) ([]models.Artwork, error) {
	conds := []string{"published = 1"}
	if filter.FeaturedOnly {
		conds = append(conds, "featured = 1")
	}
	if filter.ForSaleOnly {
		conds = append(conds, "status = 'available'", "price_cents IS NOT NULL")
	}
	return r.list(ctx, strings.Join(conds, " AND "), nil, filter.Limit)
}

func (r *sqliteArtworkRepo) Update(ctx context.Context, a *models.Artwork) error {
	query := `
		UPDATE artworks SET slug = ?, title = ?, description = ?, medium = ?, year = ?,
			width_cm = ?, height_cm = ?, depth_cm = ?, price_cents = ?, currency = ?,
			image_url = ?, featured = ?, published = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING status, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		a.Slug, a.Title, a.Description, a.Medium, a.Year, a.WidthCM, a.HeightCM, a.DepthCM,
		a.PriceCents, a.Currency, a.ImageURL, boolToInt(a.Featured), boolToInt(a.Published),
		a.ID,
	).Scan(&a.Status, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug already in use", pkg.ErrAlreadyExists)
		}
		return notFound(err, "update artwork")
	}
	return nil
}

func (r *sqliteArtworkRepo) Lock(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE artworks SET updated_at = updated_at WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to lock artwork: %w", err)
	}
	return requireAffected(result, "artwork not found")
}

// Delete checks the reservation and the open orders in the DELETE itself.
// An order placed concurrently either commits first and blocks the delete,
// or waits on the write lock and then finds the artwork gone.
func (r *sqliteArtworkRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM artworks
		WHERE id = ? AND status <> 'reserved'
			AND NOT EXISTS (
				SELECT 1 FROM orders WHERE orders.artwork_id = artworks.id AND orders.status IN ('pending', 'paid')
			)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete artwork: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artworks WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check artwork: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: artwork not found", pkg.ErrNotFound)
	}
	return fmt.Errorf("%w: artwork has an open order", pkg.ErrConflict)
}

func (r *sqliteArtworkRepo) UpdatePosition(ctx context.Context, id string, position int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE artworks SET position = ? WHERE id = ?`, position, id)
	if err != nil {
		return fmt.Errorf("failed to update artwork position: %w", err)
	}
	return requireAffected(result, "artwork "+id+" not found")
}

func (r *sqliteArtworkRepo) CompareAndSetStatus(ctx context.Context, id string, from, to models.ArtworkStatus, requirePublished bool) (bool, error) {
	query := `UPDATE artworks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`
	if requirePublished {
		query += ` AND published = 1`
	}

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update artwork status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected == 1, nil
}
