package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/atelier/database"
	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
)

type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo returns the SQLite UserRepository.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

const userColumns = `id, email, name, password_hash, role, language, last_seen_at, created_at`

func scanUser(s scanner, u *models.User) error {
	return s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Language, &u.LastSeenAt, &u.CreatedAt)
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, role, language)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Language,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// CreateBootstrap reads the user count and inserts in one statement. SQLite
// takes the write lock when a writing statement starts, so concurrent
// signups on an empty database see each other: exactly one of them finds
// the table empty.
func (r *sqliteUserRepo) CreateBootstrap(ctx context.Context, user *models.User, open bool) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, role, language)
		SELECT lower(hex(randomblob(8))), ?, ?, ?,
			CASE WHEN EXISTS (SELECT 1 FROM users) THEN 'member' ELSE 'admin' END, ?
		WHERE ? = 1 OR NOT EXISTS (SELECT 1 FROM users)
		RETURNING id, role, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Language,
		boolToInt(open),
	).Scan(&user.ID, &user.Role, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: registration is closed", pkg.ErrForbidden)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id), user)
	if err != nil {
		return nil, notFound(err, "get user by id")
	}
	return user, nil
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email), user)
	if err != nil {
		return nil, notFound(err, "get user by email")
	}
	return user, nil
}

func (r *sqliteUserRepo) GetAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (r *sqliteUserRepo) UpdatePassword(ctx context.Context, userID, newPasswordHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, newPasswordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result, "user not found")
}

// keepsAnAdmin is the guard shared by UpdateRole and Delete: the row may
// change unless it is an admin and the only one.
const keepsAnAdmin = `(role <> 'admin' OR (SELECT COUNT(*) FROM users WHERE role = 'admin') > 1)`

// UpdateRole checks the admin count inside the UPDATE itself. Two admins
// demoting each other at once are serialized by SQLite's write lock, and
// the second one sees a single admin left.
func (r *sqliteUserRepo) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND (? = 'admin' OR `+keepsAnAdmin+`)`,
		role, userID, role,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return r.lastAdminOrMissing(ctx, result, userID)
}

func (r *sqliteUserRepo) UpdateLanguage(ctx context.Context, userID, language string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET language = ? WHERE id = ?`, language, userID)
	if err != nil {
		return fmt.Errorf("failed to update language: %w", err)
	}
	return requireAffected(result, "user not found")
}

func (r *sqliteUserRepo) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen_at = ? WHERE id = ?`, utc(at), userID); err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ? AND `+keepsAnAdmin, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return r.lastAdminOrMissing(ctx, result, id)
}

// lastAdminOrMissing explains a guarded write that matched no row.
func (r *sqliteUserRepo) lastAdminOrMissing(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	return fmt.Errorf("%w: the last admin cannot be removed", pkg.ErrConflict)
}
