package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
)

type sqliteStatsRepo struct {
	db database.TxQuerier
}

// NewSQLiteStatsRepo returns the SQLite StatsRepository.
func NewSQLiteStatsRepo(db database.TxQuerier) StatsRepository {
	return &sqliteStatsRepo{db: db}
}

func (r *sqliteStatsRepo) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM artworks),
			(SELECT COUNT(*) FROM artworks WHERE published = 1),
			(SELECT COUNT(*) FROM artworks WHERE published = 1 AND status = 'available' AND price_cents IS NOT NULL),
			(SELECT COUNT(*) FROM artworks WHERE status = 'sold'),
			(SELECT COUNT(*) FROM orders WHERE status = 'pending'),
			(SELECT COUNT(*) FROM orders WHERE status = 'paid'),
			(SELECT COUNT(*) FROM contact_messages WHERE is_read = 0),
			(SELECT COUNT(*) FROM press_items)`

	s := &models.DashboardStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.Users, &s.Artworks, &s.Published, &s.ForSale, &s.Sold,
		&s.PendingOrders, &s.PaidOrders, &s.UnreadMessages, &s.PressItems,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	return s, nil
}
