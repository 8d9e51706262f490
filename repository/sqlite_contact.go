package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
)

type sqliteContactRepo struct {
	db database.TxQuerier
}

// NewSQLiteContactRepo returns the SQLite ContactRepository.
func NewSQLiteContactRepo(db database.TxQuerier) ContactRepository {
	return &sqliteContactRepo{db: db}
}

func (r *sqliteContactRepo) Create(ctx context.Context, m *models.ContactMessage) error {
	query := `
		INSERT INTO contact_messages (id, name, email, message, locale, ip)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?)
		RETURNING id, created_at`

	if err := r.db.QueryRowContext(ctx, query,
		m.Name, m.Email, m.Message, m.Locale, m.IP,
	).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("failed to create contact message: %w", err)
	}
	return nil
}

func (r *sqliteContactRepo) List(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	query := `
		SELECT id, name, email, message, locale, ip, is_read, created_at
		FROM contact_messages
		ORDER BY is_read, created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.ContactMessage{}
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.Locale, &m.IP, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact message rows: %w", err)
	}
	return msgs, nil
}

func (r *sqliteContactRepo) MarkRead(ctx context.Context, id string, read bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE contact_messages SET is_read = ? WHERE id = ?`, boolToInt(read), id)
	if err != nil {
		return fmt.Errorf("failed to mark contact message: %w", err)
	}
	return requireAffected(result, "message not found")
}

func (r *sqliteContactRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact message: %w", err)
	}
	return requireAffected(result, "message not found")
}
