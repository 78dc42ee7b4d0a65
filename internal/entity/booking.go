package entity

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID          string        `json:"id" db:"id" bson:"_id,omitempty"`
	EventID     string        `json:"event" db:"event_id" bson:"event"`
	UserID      string        `json:"user" db:"user_id" bson:"user"`
	SeatsBooked int           `json:"seatsBooked" db:"seats_booked" bson:"seatsBooked"`
	Status      BookingStatus `json:"status" db:"status" bson:"status"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

func (b *Booking) IsOwner(userID string) bool {
	return b.UserID == userID
}

// BookingView is a booking with its event and user populated for reads.
type BookingView struct {
	ID          string        `json:"id"`
	Event       *EventSummary `json:"event"`
	User        interface{}   `json:"user"`
	SeatsBooked int           `json:"seatsBooked"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// NewBookingView builds a view. A nil user keeps the bare user id.
func NewBookingView(b *Booking, event *Event, user *User) *BookingView {
	view := &BookingView{
		ID:          b.ID,
		Event:       event.Summary(),
		User:        b.UserID,
		SeatsBooked: b.SeatsBooked,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if user != nil {
		view.User = user.Summary()
	}
	return view
}

// BookingEventType names a booking lifecycle transition published to brokers.
type BookingEventType string

const (
	BookingCreated   BookingEventType = "booking.created"
	BookingUpdated   BookingEventType = "booking.updated"
	BookingCancelled BookingEventType = "booking.cancelled"
)

type BookingEvent struct {
	Type           BookingEventType `json:"type"`
	BookingID      string           `json:"bookingId"`
	EventID        string           `json:"eventId"`
	UserID         string           `json:"userId"`
	Seats          int              `json:"seats"`
	AvailableSeats int              `json:"availableSeats"`
	OccurredAt     time.Time        `json:"occurredAt"`
}
