package services

import (
	"context"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

// StatsService feeds the admin dashboard.
type StatsService interface {
	Dashboard(ctx context.Context) (*DashboardView, error)
}

// DashboardView is the stored counters plus the admins online right now.
type DashboardView struct {
	models.DashboardStats
	OnlineAdmins int `json:"online_admins"`
}

type statsService struct {
	repo repository.StatsRepository
	hub  ws.Broadcaster
}

func NewStatsService(repo repository.StatsRepository, hub ws.Broadcaster) StatsService {
	return &statsService{repo: repo, hub: hub}
}

func (s *statsService) Dashboard(ctx context.Context) (*DashboardView, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := s.repo.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardView{DashboardStats: *stats, OnlineAdmins: len(s.hub.OnlineUserIDs())}, nil
}
