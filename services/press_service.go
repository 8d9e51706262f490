package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/linkpreview"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

// PreviewFetcher resolves link previews. *linkpreview.Fetcher implements it.
type PreviewFetcher interface {
	Fetch(ctx context.Context, rawURL string) (linkpreview.Preview, error)
	Forget(rawURL string)
}

// PressService manages the press and news cards.
type PressService interface {
	// Create stores the item and fills every field the admin left empty from
	// the page's preview. A failed fetch still saves the item.
	Create(ctx context.Context, req *models.CreatePressRequest) (*models.PressItem, error)
	Update(ctx context.Context, id string, req *models.UpdatePressRequest) (*models.PressItem, error)
	Delete(ctx context.Context, id string) error
	ListPublished(ctx context.Context, kind models.PressKind) ([]models.PressItem, error)
	ListAll(ctx context.Context) ([]models.PressItem, error)
	Refresh(ctx context.Context, id string) (*models.PressItem, error)
	RefreshAll(ctx context.Context) (*models.RefreshResult, error)
	Preview(ctx context.Context, rawURL string) (*linkpreview.Preview, error)
}

type pressService struct {
	repo        repository.PressRepository
	fetcher     PreviewFetcher
	hub         ws.Broadcaster
	concurrency int
	now         func() time.Time
	log         *zap.Logger
}

func NewPressService(repo repository.PressRepository, fetcher PreviewFetcher, hub ws.Broadcaster, concurrency int) PressService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &pressService{
		repo:        repo,
		fetcher:     fetcher,
		hub:         hub,
		concurrency: concurrency,
		now:         time.Now,
		log:         zap.L().Named("press"),
	}
}

func (s *pressService) Create(ctx context.Context, req *models.CreatePressRequest) (*models.PressItem, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	item := &models.PressItem{
		Kind:        req.Kind,
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Outlet:      req.Outlet,
		PublishedAt: req.PublishedDay,
		Published:   req.Published == nil || *req.Published,
	}

	preview, err := s.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		s.log.Warn("preview fetch failed", zap.String("url", item.URL), zap.Error(err))
	} else {
		fillEmpty(item, preview)
		fetched := s.now().UTC()
		item.FetchedAt = &fetched
	}
	if item.Title == "" {
		item.Title = item.URL
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpPressCreate, Data: item})
	return item, nil
}

func (s *pressService) Update(ctx context.Context, id string, req *models.UpdatePressRequest) (*models.PressItem, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(item)

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpPressUpdate, Data: item})
	return item, nil
}

func (s *pressService) Delete(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpPressDelete, Data: ws.DeletedData{ID: id}})
	return nil
}

func (s *pressService) ListPublished(ctx context.Context, kind models.PressKind) ([]models.PressItem, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: kind must be press or news", pkg.ErrBadRequest)
	}
	return s.repo.List(ctx, true, kind)
}

func (s *pressService) ListAll(ctx context.Context) ([]models.PressItem, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, false, "")
}

func (s *pressService) Refresh(ctx context.Context, id string) (*models.PressItem, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, item); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpPressUpdate, Data: item})
	return item, nil
}

// RefreshAll refetches every item with at most concurrency requests in
// flight. A failing item is counted, not returned.
//
// errgroup.SetLimit makes g.Go block once concurrency goroutines are
// running, so the loop itself is the queue. The goroutines never return an
// error, so one dead link never cancels gctx for the others. A cancelled
// caller still stops the fetches through gctx, and those count as failed.
func (s *pressService) RefreshAll(ctx context.Context) (*models.RefreshResult, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, false, "")
	if err != nil {
		return nil, err
	}

	var refreshed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range items {
		item := &items[i]
		g.Go(func() error {
			if err := s.refresh(gctx, item); err != nil {
				s.log.Warn("press refresh failed", zap.String("id", item.ID), zap.String("url", item.URL), zap.Error(err))
				failed.Add(1)
				return nil
			}
			refreshed.Add(1)
			s.hub.BroadcastToAll(ws.Event{Op: ws.OpPressUpdate, Data: item})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.RefreshResult{Refreshed: int(refreshed.Load()), Failed: int(failed.Load())}
	s.log.Info("press refresh done", zap.Int("refreshed", result.Refreshed), zap.Int("failed", result.Failed))
	return result, nil
}

func (s *pressService) Preview(ctx context.Context, rawURL string) (*linkpreview.Preview, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, err := linkpreview.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	preview, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: could not load preview: %s", pkg.ErrBadRequest, err.Error())
	}
	return &preview, nil
}

// refresh bypasses the cache, overwrites the fields the page now reports
// and stores the item.
func (s *pressService) refresh(ctx context.Context, item *models.PressItem) error {
	s.fetcher.Forget(item.URL)
	preview, err := s.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return err
	}

	overwrite(&item.Title, preview.Title)
	overwrite(&item.Description, preview.Description)
	overwrite(&item.ImageURL, preview.ImageURL)
	overwrite(&item.SiteName, preview.SiteName)
	fetched := s.now().UTC()
	item.FetchedAt = &fetched

	return s.repo.Update(ctx, item)
}

func fillEmpty(item *models.PressItem, p linkpreview.Preview) {
	if item.Title == "" {
		item.Title = p.Title
	}
	if item.Description == "" {
		item.Description = p.Description
	}
	if item.ImageURL == "" {
		item.ImageURL = p.ImageURL
	}
	item.SiteName = p.SiteName
}

func overwrite(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
