package service

import (
	"context"

	"github.com/ds124wfegd/event-booker/internal/entity"
)

type EventService interface {
	CreateEvent(ctx context.Context, requester entity.Requester, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id string) (*entity.Event, error)
	GetAllEvents(ctx context.Context) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, requester entity.Requester, id string, req *UpdateEventRequest) (*entity.Event, error)
	DeleteEvent(ctx context.Context, requester entity.Requester, id string) error
}

type UserService interface {
	Register(ctx context.Context, req *RegisterUserRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	GetAllUsers(ctx context.Context, requester entity.Requester) ([]*entity.User, error)
	GetUser(ctx context.Context, requester entity.Requester, id string) (*entity.User, error)
	UpdateUser(ctx context.Context, requester entity.Requester, id string, req *UpdateUserRequest) (*entity.User, error)
	DeleteUser(ctx context.Context, requester entity.Requester, id string) error
}

// BookingService runs the booking lifecycle on top of the capacity ledger.
type BookingService interface {
	CreateBooking(ctx context.Context, requester entity.Requester, req *CreateBookingRequest) (*entity.Booking, error)
	UpdateBooking(ctx context.Context, requester entity.Requester, id string, req *UpdateBookingRequest) (*entity.Booking, error)
	CancelBooking(ctx context.Context, requester entity.Requester, id string) error

	GetAllBookings(ctx context.Context, requester entity.Requester) ([]*entity.BookingView, error)
	GetBooking(ctx context.Context, requester entity.Requester, id string) (*entity.BookingView, error)
	GetUserBookings(ctx context.Context, requester entity.Requester) ([]*entity.BookingView, error)
}

// TaskPublisher hands follow-up work to the background task pipeline.
type TaskPublisher interface {
	PublishReleaseSeats(ctx context.Context, eventID string, seats int) error
	PublishBookingEvent(ctx context.Context, evt *entity.BookingEvent) error
}
