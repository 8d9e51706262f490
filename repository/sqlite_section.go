package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
)

type sqliteSectionRepo struct {
	db database.TxQuerier
}

// NewSQLiteSectionRepo returns the SQLite SectionRepository.
func NewSQLiteSectionRepo(db database.TxQuerier) SectionRepository {
	return &sqliteSectionRepo{db: db}
}

func scanSection(s scanner, sec *models.Section) error {
	var data string
	if err := s.Scan(&sec.Key, &sec.Locale, &data, &sec.UpdatedBy, &sec.UpdatedAt); err != nil {
		return err
	}
	sec.Data = json.RawMessage(data)
	return nil
}

func (r *sqliteSectionRepo) Get(ctx context.Context, key models.SectionKey, locale string) (*models.Section, error) {
	query := `
		SELECT section_key, locale, data, updated_by, updated_at
		FROM sections WHERE section_key = ? AND locale = ?`

	sec := &models.Section{}
	if err := scanSection(r.db.QueryRowContext(ctx, query, key, locale), sec); err != nil {
		return nil, notFound(err, "get section")
	}
	return sec, nil
}

func (r *sqliteSectionRepo) Upsert(ctx context.Context, section *models.Section) error {
	query := `
		INSERT INTO sections (section_key, locale, data, updated_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (section_key, locale) DO UPDATE SET
			data = excluded.data,
			updated_by = excluded.updated_by,
			updated_at = CURRENT_TIMESTAMP
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		section.Key, section.Locale, string(section.Data), section.UpdatedBy,
	).Scan(&section.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert section: %w", err)
	}
	return nil
}

func (r *sqliteSectionRepo) ListByLocale(ctx context.Context, locale string) ([]models.Section, error) {
	query := `
		SELECT section_key, locale, data, updated_by, updated_at
		FROM sections WHERE locale = ? ORDER BY section_key`

	rows, err := r.db.QueryContext(ctx, query, locale)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	sections := []models.Section{}
	for rows.Next() {
		var sec models.Section
		if err := scanSection(rows, &sec); err != nil {
			return nil, fmt.Errorf("failed to scan section row: %w", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating section rows: %w", err)
	}

	return sections, nil
}

func (r *sqliteSectionRepo) Delete(ctx context.Context, key models.SectionKey, locale string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE section_key = ? AND locale = ?`, key, locale)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	return requireAffected(result, "section not found")
}
