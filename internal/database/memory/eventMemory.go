// Package memory keeps records in process memory. It backs local runs with
// storage.driver=memory and the service and transport tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/google/uuid"
)

type eventRepository struct {
	mu     sync.RWMutex
	events map[string]*entity.Event
}

func NewEventRepository() database.EventRepository {
	return &eventRepository{events: make(map[string]*entity.Event)}
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	r.events[event.ID] = copyEvent(event)
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return copyEvent(event), nil
}

func (r *eventRepository) GetAll(ctx context.Context) ([]*entity.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*entity.Event, 0, len(r.events))
	for _, event := range r.events {
		events = append(events, copyEvent(event))
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.events[event.ID]
	if !ok {
		return entity.ErrEventNotFound
	}

	stored.Title = event.Title
	stored.Description = event.Description
	stored.Date = event.Date
	stored.Location = event.Location
	stored.TotalSeats = event.TotalSeats
	stored.Price = event.Price
	stored.UpdatedAt = time.Now()

	event.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return entity.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *eventRepository) TakeSeats(ctx context.Context, id string, n int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return 0, entity.ErrEventNotFound
	}

	available := capacity.Resolve(event)
	if available < n {
		return available, &entity.InsufficientSeatsError{Requested: n, Available: available}
	}

	event.AvailableSeats = entity.Seats(available - n)
	event.UpdatedAt = time.Now()
	return *event.AvailableSeats, nil
}

func (r *eventRepository) ReturnSeats(ctx context.Context, id string, n int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return 0, entity.ErrEventNotFound
	}

	event.AvailableSeats = entity.Seats(capacity.Resolve(event) + n)
	event.UpdatedAt = time.Now()
	return *event.AvailableSeats, nil
}

func copyEvent(event *entity.Event) *entity.Event {
	c := *event
	if event.AvailableSeats != nil {
		c.AvailableSeats = entity.Seats(*event.AvailableSeats)
	}
	return &c
}
