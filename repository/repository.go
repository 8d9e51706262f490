// Package repository is the data access layer. Every repository is an
// interface with a SQLite implementation built on database.TxQuerier, so the
// same repository works on *sql.DB and inside database.WithTx.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/atelier/pkg"
)

// isUniqueViolation matches SQLite's UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireAffected turns "no row matched" into pkg.ErrNotFound.
func requireAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", pkg.ErrNotFound, what)
	}
	return nil
}

// notFound maps sql.ErrNoRows to pkg.ErrNotFound and wraps anything else.
func notFound(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return pkg.ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// utc is the form every time value is written in, so text comparisons in
// SQL order correctly.
func utc(t time.Time) time.Time {
	return t.UTC()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
