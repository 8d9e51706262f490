package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
)

type sqliteOrderRepo struct {
	db database.TxQuerier
}

// NewSQLiteOrderRepo returns the SQLite OrderRepository.
func NewSQLiteOrderRepo(db database.TxQuerier) OrderRepository {
	return &sqliteOrderRepo{db: db}
}

// artwork_id is NULL once the artwork is deleted; the title stays.
const orderColumns = `id, reference, COALESCE(artwork_id, ''), artwork_title, buyer_name, buyer_email,
	shipping_address, phone, note, amount_cents, currency, status, locale, expires_at, created_at, updated_at`

func scanOrder(s scanner, o *models.Order) error {
	return s.Scan(
		&o.ID, &o.Reference, &o.ArtworkID, &o.ArtworkTitle, &o.BuyerName, &o.BuyerEmail,
		&o.ShippingAddress, &o.Phone, &o.Note, &o.AmountCents, &o.Currency, &o.Status,
		&o.Locale, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *sqliteOrderRepo) Create(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (id, reference, artwork_id, artwork_title, buyer_name, buyer_email,
			shipping_address, phone, note, amount_cents, currency, status, locale, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		o.ID, o.Reference, o.ArtworkID, o.ArtworkTitle, o.BuyerName, o.BuyerEmail,
		o.ShippingAddress, o.Phone, o.Note, o.AmountCents, o.Currency, o.Status, o.Locale,
		utc(o.ExpiresAt),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order reference collision", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *sqliteOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	o := &models.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id), o); err != nil {
		return nil, notFound(err, "get order by id")
	}
	return o, nil
}

func (r *sqliteOrderRepo) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	o := &models.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE reference = ?`, reference), o); err != nil {
		return nil, notFound(err, "get order by reference")
	}
	return o, nil
}

func (r *sqliteOrderRepo) query(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

func (r *sqliteOrderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return r.query(ctx, query, args...)
}

func (r *sqliteOrderRepo) CompareAndSetStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *sqliteOrderRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Order, error) {
	return r.query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = 'pending' AND expires_at < ? ORDER BY expires_at`,
		utc(now),
	)
}

func (r *sqliteOrderRepo) HasOpenForArtwork(ctx context.Context, artworkID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE artwork_id = ? AND status IN ('pending', 'paid')`, artworkID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check open orders: %w", err)
	}
	return n > 0, nil
}
