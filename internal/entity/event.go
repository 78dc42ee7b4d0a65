package entity

import (
	"time"
)

type Event struct {
	ID             string    `json:"id" db:"id" bson:"_id,omitempty"`
	Title          string    `json:"title" db:"title" bson:"title"`
	Description    string    `json:"description" db:"description" bson:"description"`
	Date           time.Time `json:"date" db:"date" bson:"date"`
	Location       string    `json:"location" db:"location" bson:"location"`
	TotalSeats     int       `json:"totalSeats" db:"total_seats" bson:"totalSeats"`
	AvailableSeats *int      `json:"availableSeats,omitempty" db:"available_seats" bson:"availableSeats,omitempty"`
	Price          float64   `json:"price" db:"price" bson:"price"`
	Organizer      string    `json:"organizer,omitempty" db:"organizer" bson:"organizer,omitempty"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// EventSummary is the public projection of an event embedded into booking views.
type EventSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
}

func (e *Event) Summary() *EventSummary {
	if e == nil {
		return nil
	}
	return &EventSummary{
		ID:       e.ID,
		Title:    e.Title,
		Date:     e.Date,
		Location: e.Location,
	}
}

// IsOrganizer reports whether the user created the event.
func (e *Event) IsOrganizer(userID string) bool {
	return e.Organizer != "" && e.Organizer == userID
}

// Seats returns a pointer suitable for Event.AvailableSeats.
func Seats(n int) *int {
	return &n
}
