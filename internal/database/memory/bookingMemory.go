package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/google/uuid"
)

type bookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*entity.Booking
}

func NewBookingRepository() database.BookingRepository {
	return &bookingRepository{bookings: make(map[string]*entity.Booking)}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = entity.BookingStatusConfirmed
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	stored := *booking
	r.bookings[booking.ID] = &stored
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	c := *booking
	return &c, nil
}

func (r *bookingRepository) GetAll(ctx context.Context) ([]*entity.Booking, error) {
	return r.filter(func(*entity.Booking) bool { return true }), nil
}

func (r *bookingRepository) GetByUserID(ctx context.Context, userID string) ([]*entity.Booking, error) {
	return r.filter(func(b *entity.Booking) bool { return b.UserID == userID }), nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[booking.ID]
	if !ok {
		return entity.ErrBookingNotFound
	}

	stored.SeatsBooked = booking.SeatsBooked
	stored.Status = booking.Status
	stored.UpdatedAt = time.Now()

	booking.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return entity.ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *bookingRepository) SumSeatsByEvent(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sums := make(map[string]int)
	for _, booking := range r.bookings {
		sums[booking.EventID] += booking.SeatsBooked
	}
	return sums, nil
}

func (r *bookingRepository) filter(keep func(*entity.Booking) bool) []*entity.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bookings := make([]*entity.Booking, 0)
	for _, booking := range r.bookings {
		if keep(booking) {
			c := *booking
			bookings = append(bookings, &c)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
	return bookings
}
