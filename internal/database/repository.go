// Package database declares the storage contracts shared by the postgres,
// mongodb and in-memory backends.
package database

import (
	"context"

	"github.com/ds124wfegd/event-booker/internal/entity"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	GetAll(ctx context.Context) ([]*entity.Event, error)
	// Update persists descriptive fields and totalSeats. availableSeats is
	// only ever changed through TakeSeats and ReturnSeats.
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id string) error

	TakeSeats(ctx context.Context, id string, n int) (int, error)
	ReturnSeats(ctx context.Context, id string, n int) (int, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id string) (*entity.Booking, error)
	GetAll(ctx context.Context) ([]*entity.Booking, error)
	GetByUserID(ctx context.Context, userID string) ([]*entity.Booking, error)
	Update(ctx context.Context, booking *entity.Booking) error
	Delete(ctx context.Context, id string) error

	// SumSeatsByEvent returns booked seats per event id across all bookings.
	SumSeatsByEvent(ctx context.Context) (map[string]int, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetAll(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	Delete(ctx context.Context, id string) error
}

// Repositories groups the stores of one backend.
type Repositories struct {
	Events   EventRepository
	Bookings BookingRepository
	Users    UserRepository
}
