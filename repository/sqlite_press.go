package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
)

type sqlitePressRepo struct {
	db database.TxQuerier
}

// NewSQLitePressRepo returns the SQLite PressRepository.
func NewSQLitePressRepo(db database.TxQuerier) PressRepository {
	return &sqlitePressRepo{db: db}
}

const pressColumns = `id, kind, url, title, description, image_url, site_name, outlet,
	published_at, published, position, fetched_at, created_at`

func scanPress(s scanner, p *models.PressItem) error {
	return s.Scan(
		&p.ID, &p.Kind, &p.URL, &p.Title, &p.Description, &p.ImageURL, &p.SiteName, &p.Outlet,
		&p.PublishedAt, &p.Published, &p.Position, &p.FetchedAt, &p.CreatedAt,
	)
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func (r *sqlitePressRepo) Create(ctx context.Context, p *models.PressItem) error {
	query := `
		INSERT INTO press_items (id, kind, url, title, description, image_url, site_name, outlet,
			published_at, published, position, fetched_at)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.Kind, p.URL, p.Title, p.Description, p.ImageURL, p.SiteName, p.Outlet,
		utcPtr(p.PublishedAt), boolToInt(p.Published), p.Position, utcPtr(p.FetchedAt),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: this url is already listed", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create press item: %w", err)
	}
	return nil
}

func (r *sqlitePressRepo) GetByID(ctx context.Context, id string) (*models.PressItem, error) {
	p := &models.PressItem{}
	if err := scanPress(r.db.QueryRowContext(ctx, `SELECT `+pressColumns+` FROM press_items WHERE id = ?`, id), p); err != nil {
		return nil, notFound(err, "get press item")
	}
	return p, nil
}

func (r *sqlitePressRepo) List(ctx context.Context, publishedOnly bool, kind models.PressKind) ([]models.PressItem, error) {
	var conds []string
	var args []any
	if publishedOnly {
		conds = append(conds, "published = 1")
	}
	if kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}

	query := `SELECT ` + pressColumns + ` FROM press_items`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY position, COALESCE(published_at, created_at) DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list press items: %w", err)
	}
	defer rows.Close()

	items := []models.PressItem{}
	for rows.Next() {
		var p models.PressItem
		if err := scanPress(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan press row: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating press rows: %w", err)
	}
	return items, nil
}

func (r *sqlitePressRepo) Update(ctx context.Context, p *models.PressItem) error {
	query := `
		UPDATE press_items SET kind = ?, title = ?, description = ?, image_url = ?, site_name = ?,
			outlet = ?, published_at = ?, published = ?, position = ?, fetched_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		p.Kind, p.Title, p.Description, p.ImageURL, p.SiteName, p.Outlet,
		utcPtr(p.PublishedAt), boolToInt(p.Published), p.Position, utcPtr(p.FetchedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update press item: %w", err)
	}
	return requireAffected(result, "press item not found")
}

func (r *sqlitePressRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM press_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete press item: %w", err)
	}
	return requireAffected(result, "press item not found")
}
