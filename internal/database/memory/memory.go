package memory

import "github.com/ds124wfegd/event-booker/internal/database"

func NewRepositories() *database.Repositories {
	return &database.Repositories{
		Events:   NewEventRepository(),
		Bookings: NewBookingRepository(),
		Users:    NewUserRepository(),
	}
}
