package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/repository"
	"github.com/akinalp/atelier/ws"
)

// SectionService manages the CMS content blocks.
type SectionService interface {
	// Get returns the section for locale, falling back to the default locale.
	Get(ctx context.Context, key models.SectionKey, locale string) (*models.Section, error)
	// Content is Get decoded into the section's payload type.
	Content(ctx context.Context, key models.SectionKey, locale string) (models.SectionContent, error)
	Upsert(ctx context.Context, key models.SectionKey, locale string, raw []byte) (*models.Section, error)
	List(ctx context.Context, locale string) ([]models.Section, error)
	Delete(ctx context.Context, key models.SectionKey, locale string) error
	Schema() []models.SectionSchema
}

type sectionService struct {
	repo          repository.SectionRepository
	hub           ws.Broadcaster
	defaultLocale string
}

func NewSectionService(repo repository.SectionRepository, hub ws.Broadcaster, defaultLocale string) SectionService {
	return &sectionService{repo: repo, hub: hub, defaultLocale: defaultLocale}
}

func (s *sectionService) Get(ctx context.Context, key models.SectionKey, locale string) (*models.Section, error) {
	section, err := s.repo.Get(ctx, key, locale)
	if err == nil || !errors.Is(err, pkg.ErrNotFound) || locale == s.defaultLocale {
		return section, err
	}
	return s.repo.Get(ctx, key, s.defaultLocale)
}

func (s *sectionService) Content(ctx context.Context, key models.SectionKey, locale string) (models.SectionContent, error) {
	section, err := s.Get(ctx, key, locale)
	if err != nil {
		return nil, err
	}

	content, err := models.DecodeSection(key, section.Data)
	if err != nil {
		// Stored before a schema change; the page renders without it.
		zap.L().Named("sections").Warn("stored section no longer valid",
			zap.String("key", string(key)), zap.String("locale", section.Locale), zap.Error(err))
		return nil, fmt.Errorf("%w: section %s", pkg.ErrNotFound, key)
	}
	return content, nil
}

// Upsert validates raw against the section schema and stores its normalized
// form.
func (s *sectionService) Upsert(ctx context.Context, key models.SectionKey, locale string, raw []byte) (*models.Section, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := models.LookupSectionSchema(key); !ok {
		return nil, fmt.Errorf("%w: unknown section %q", pkg.ErrBadRequest, key)
	}
	if !i18n.IsSupported(locale) {
		return nil, fmt.Errorf("%w: unsupported locale %q", pkg.ErrBadRequest, locale)
	}

	content, err := models.DecodeSection(key, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	normalized, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode section: %w", err)
	}

	section := &models.Section{Key: key, Locale: locale, Data: normalized}
	if actor.ID != "" {
		id := actor.ID
		section.UpdatedBy = &id
	}

	if err := s.repo.Upsert(ctx, section); err != nil {
		return nil, err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpSectionUpdate, Data: section})
	return section, nil
}

func (s *sectionService) List(ctx context.Context, locale string) ([]models.Section, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !i18n.IsSupported(locale) {
		return nil, fmt.Errorf("%w: unsupported locale %q", pkg.ErrBadRequest, locale)
	}
	return s.repo.ListByLocale(ctx, locale)
}

func (s *sectionService) Delete(ctx context.Context, key models.SectionKey, locale string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, key, locale); err != nil {
		return err
	}

	s.hub.BroadcastToAll(ws.Event{Op: ws.OpSectionDelete, Data: map[string]string{
		"key":    string(key),
		"locale": locale,
	}})
	return nil
}

func (s *sectionService) Schema() []models.SectionSchema {
	return models.SectionSchemas()
}
