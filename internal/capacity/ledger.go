// Package capacity owns the available-seat count of events. Every change to
// that count goes through a Ledger, which validates the request before
// delegating the write to an atomic SeatStore operation.
package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/ds124wfegd/event-booker/internal/entity"
)

// SeatStore applies seat changes atomically in storage.
//
// TakeSeats decrements the resolved availability by n only if at least n
// seats remain and returns the new count. It fails with
// *entity.InsufficientSeatsError when the guard rejects the write and with
// entity.ErrEventNotFound when the event is gone. ReturnSeats increments the
// resolved availability by n.
type SeatStore interface {
	TakeSeats(ctx context.Context, eventID string, n int) (int, error)
	ReturnSeats(ctx context.Context, eventID string, n int) (int, error)
}

type Ledger struct {
	store SeatStore
}

func NewLedger(store SeatStore) *Ledger {
	return &Ledger{store: store}
}

// Resolve returns the current available count of an event: availableSeats
// when set, totalSeats otherwise, and zero for a nil event.
func Resolve(event *entity.Event) int {
	if event == nil {
		return 0
	}
	if event.AvailableSeats != nil {
		return *event.AvailableSeats
	}
	return event.TotalSeats
}

// Reserve takes quantity seats from the event. The loaded event may be a
// cached or stale copy, so its count is never trusted: the store guard alone
// decides, rejects without a write and reports the live availability.
func (l *Ledger) Reserve(ctx context.Context, event *entity.Event, quantity int) (int, error) {
	if quantity < 1 {
		return 0, entity.NewValidationError("Must reserve at least 1 seat.")
	}
	if event == nil {
		return 0, entity.ErrEventNotFound
	}

	remaining, err := l.store.TakeSeats(ctx, event.ID, quantity)
	if err != nil {
		var insufficient *entity.InsufficientSeatsError
		if errors.As(err, &insufficient) {
			event.AvailableSeats = entity.Seats(insufficient.Available)
			return insufficient.Available, err
		}
		return 0, fmt.Errorf("failed to take seats: %w", err)
	}

	event.AvailableSeats = entity.Seats(remaining)
	return remaining, nil
}

// Adjust applies a signed change in demand: a positive delta takes seats
// under the same rules as Reserve, a negative one gives them back.
func (l *Ledger) Adjust(ctx context.Context, event *entity.Event, delta int) (int, error) {
	switch {
	case delta > 0:
		return l.Reserve(ctx, event, delta)
	case delta < 0:
		return l.giveBack(ctx, event, -delta)
	default:
		return Resolve(event), nil
	}
}

// Release returns quantity seats to the event. A missing event is not an
// error: the booking that held the seats can still be dropped.
func (l *Ledger) Release(ctx context.Context, event *entity.Event, quantity int) (int, error) {
	if event == nil || quantity <= 0 {
		return Resolve(event), nil
	}

	remaining, err := l.giveBack(ctx, event, quantity)
	if errors.Is(err, entity.ErrEventNotFound) {
		return 0, nil
	}
	return remaining, err
}

// ReleaseByID is Release for callers that only hold the event id, such as
// queued compensation tasks.
func (l *Ledger) ReleaseByID(ctx context.Context, eventID string, quantity int) (int, error) {
	return l.Release(ctx, &entity.Event{ID: eventID}, quantity)
}

func (l *Ledger) giveBack(ctx context.Context, event *entity.Event, quantity int) (int, error) {
	if event == nil {
		return 0, entity.ErrEventNotFound
	}

	remaining, err := l.store.ReturnSeats(ctx, event.ID, quantity)
	if err != nil {
		if errors.Is(err, entity.ErrEventNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to return seats: %w", err)
	}

	event.AvailableSeats = entity.Seats(remaining)
	return remaining, nil
}
