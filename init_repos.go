package main

import (
	"database/sql"

	"github.com/akinalp/atelier/repository"
)

// Repositories holds every repository instance.
type Repositories struct {
	User       repository.UserRepository
	Session    repository.SessionRepository
	ResetToken repository.PasswordResetRepository
	Section    repository.SectionRepository
	Artwork    repository.ArtworkRepository
	Order      repository.OrderRepository
	Press      repository.PressRepository
	Contact    repository.ContactRepository
	Stats      repository.StatsRepository
}

// initRepositories builds every repository on the shared connection pool.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:       repository.NewSQLiteUserRepo(conn),
		Session:    repository.NewSQLiteSessionRepo(conn),
		ResetToken: repository.NewSQLiteResetTokenRepo(conn),
		Section:    repository.NewSQLiteSectionRepo(conn),
		Artwork:    repository.NewSQLiteArtworkRepo(conn),
		Order:      repository.NewSQLiteOrderRepo(conn),
		Press:      repository.NewSQLitePressRepo(conn),
		Contact:    repository.NewSQLiteContactRepo(conn),
		Stats:      repository.NewSQLiteStatsRepo(conn),
	}
}
