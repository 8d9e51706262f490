package repository

import (
	"context"

	"github.com/akinalp/atelier/models"
)

// SectionRepository stores CMS sections keyed by (key, locale).
type SectionRepository interface {
	Get(ctx context.Context, key models.SectionKey, locale string) (*models.Section, error)
	// Upsert inserts or replaces the section and sets section.UpdatedAt.
	Upsert(ctx context.Context, section *models.Section) error
	ListByLocale(ctx context.Context, locale string) ([]models.Section, error)
	Delete(ctx context.Context, key models.SectionKey, locale string) error
}
