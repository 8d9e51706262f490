package repository

import (
	"context"

	"github.com/akinalp/atelier/models"
)

// StatsRepository computes the dashboard counters.
type StatsRepository interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}
