package postgres

import (
	"database/sql"

	"github.com/ds124wfegd/event-booker/internal/database"
)

func NewRepositories(db *sql.DB) *database.Repositories {
	return &database.Repositories{
		Events:   NewEventRepository(db),
		Bookings: NewBookingRepository(db),
		Users:    NewUserRepository(db),
	}
}
