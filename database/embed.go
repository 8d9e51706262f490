package database

import (
	"embed"
	"io/fs"
)

// EmbeddedMigrations holds migrations/*.sql compiled into the binary.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

// Migrations returns the embedded migrations rooted at the migrations dir.
func Migrations() fs.FS {
	sub, err := fs.Sub(EmbeddedMigrations, "migrations")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}
