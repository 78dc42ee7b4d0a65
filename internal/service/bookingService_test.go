package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/database/memory"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTasks struct {
	mu       sync.Mutex
	releases map[string]int
	events   []*entity.BookingEvent
}

func newRecordingTasks() *recordingTasks {
	return &recordingTasks{releases: make(map[string]int)}
}

func (r *recordingTasks) PublishReleaseSeats(ctx context.Context, eventID string, seats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases[eventID] += seats
	return nil
}

func (r *recordingTasks) PublishBookingEvent(ctx context.Context, evt *entity.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingTasks) eventTypes() []entity.BookingEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]entity.BookingEventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// flakyBookings fails the selected writes and delegates everything else.
type flakyBookings struct {
	database.BookingRepository
	failCreate bool
	failUpdate bool
	failDelete bool
}

var errStorage = errors.New("storage unavailable")

func (f *flakyBookings) Create(ctx context.Context, b *entity.Booking) error {
	if f.failCreate {
		return errStorage
	}
	return f.BookingRepository.Create(ctx, b)
}

func (f *flakyBookings) Update(ctx context.Context, b *entity.Booking) error {
	if f.failUpdate {
		return errStorage
	}
	return f.BookingRepository.Update(ctx, b)
}

func (f *flakyBookings) Delete(ctx context.Context, id string) error {
	if f.failDelete {
		return errStorage
	}
	return f.BookingRepository.Delete(ctx, id)
}

// failingReturns rejects every ReturnSeats call.
type failingReturns struct {
	database.EventRepository
}

func (f *failingReturns) ReturnSeats(ctx context.Context, id string, n int) (int, error) {
	return 0, errStorage
}

type bookingFixture struct {
	repos    *database.Repositories
	bookings *flakyBookings
	events   database.EventRepository
	tasks    *recordingTasks
	svc      service.BookingService
}

func newBookingFixture(t *testing.T, wrapEvents func(database.EventRepository) database.EventRepository) *bookingFixture {
	t.Helper()

	repos := memory.NewRepositories()
	events := repos.Events
	if wrapEvents != nil {
		events = wrapEvents(events)
	}
	bookings := &flakyBookings{BookingRepository: repos.Bookings}
	tasks := newRecordingTasks()

	return &bookingFixture{
		repos:    repos,
		bookings: bookings,
		events:   events,
		tasks:    tasks,
		svc:      service.NewBookingService(bookings, events, repos.Users, capacity.NewLedger(events), tasks),
	}
}

func (f *bookingFixture) seedEvent(t *testing.T, total int) *entity.Event {
	t.Helper()
	event := &entity.Event{
		Title:          "Go Meetup",
		Date:           time.Now().Add(48 * time.Hour),
		TotalSeats:     total,
		AvailableSeats: entity.Seats(total),
	}
	require.NoError(t, f.repos.Events.Create(context.Background(), event))
	return event
}

func (f *bookingFixture) available(t *testing.T, eventID string) int {
	t.Helper()
	event, err := f.repos.Events.GetByID(context.Background(), eventID)
	require.NoError(t, err)
	return capacity.Resolve(event)
}

var (
	alice = entity.Requester{ID: "alice", Role: entity.RoleUser}
	bob   = entity.Requester{ID: "bob", Role: entity.RoleUser}
	admin = entity.Requester{ID: "root", Role: entity.RoleAdmin}
)

func TestBookingLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)
	event := f.seedEvent(t, 10)

	first, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 4})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, first.Status)
	assert.Equal(t, 6, f.available(t, event.ID))

	_, err = f.svc.CreateBooking(ctx, bob, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 7})
	var insufficient *entity.InsufficientSeatsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 6, insufficient.Available)
	assert.Equal(t, 6, f.available(t, event.ID))

	require.NoError(t, f.svc.CancelBooking(ctx, alice, first.ID))
	assert.Equal(t, 10, f.available(t, event.ID))

	_, err = f.svc.CreateBooking(ctx, bob, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 7})
	require.NoError(t, err)
	assert.Equal(t, 3, f.available(t, event.ID))

	assert.Equal(t, []entity.BookingEventType{
		entity.BookingCreated,
		entity.BookingCancelled,
		entity.BookingCreated,
	}, f.tasks.eventTypes())
}

func TestCreateBookingValidation(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)
	event := f.seedEvent(t, 5)

	tests := []struct {
		name    string
		req     *service.CreateBookingRequest
		message string
		target  error
	}{
		{"missing event id", &service.CreateBookingRequest{SeatsBooked: 1}, "eventId is required", entity.ErrInvalidInput},
		{"zero seats", &service.CreateBookingRequest{EventID: event.ID}, "Must reserve at least 1 seat.", entity.ErrInvalidInput},
		{"negative seats", &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: -2}, "Must reserve at least 1 seat.", entity.ErrInvalidInput},
		{"unknown event", &service.CreateBookingRequest{EventID: "nope", SeatsBooked: 1}, "event not found", entity.ErrEventNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(ctx, alice, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.message, err.Error())
		})
	}

	assert.Equal(t, 5, f.available(t, event.ID))
}

func TestCreateBookingReleasesSeatsWhenRecordFails(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)
	event := f.seedEvent(t, 10)
	f.bookings.failCreate = true

	_, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
	require.ErrorIs(t, err, errStorage)

	assert.Equal(t, 10, f.available(t, event.ID))
	assert.Empty(t, f.tasks.releases)
	assert.Empty(t, f.tasks.eventTypes())
}

func TestCreateBookingQueuesReleaseWhenCompensationFails(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, func(r database.EventRepository) database.EventRepository {
		return &failingReturns{EventRepository: r}
	})
	event := f.seedEvent(t, 10)
	f.bookings.failCreate = true

	_, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
	require.Error(t, err)

	assert.Equal(t, 7, f.available(t, event.ID))
	assert.Equal(t, map[string]int{event.ID: 3}, f.tasks.releases)
}

func TestUpdateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("adjusts availability by the difference", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 4})
		require.NoError(t, err)

		updated, err := f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(6)})
		require.NoError(t, err)
		assert.Equal(t, 6, updated.SeatsBooked)
		assert.Equal(t, 4, f.available(t, event.ID))

		updated, err = f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(1)})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.SeatsBooked)
		assert.Equal(t, 9, f.available(t, event.ID))
	})

	t.Run("rejects growth beyond availability", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 5)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
		require.NoError(t, err)

		_, err = f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(6)})
		var insufficient *entity.InsufficientSeatsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 2, insufficient.Available)

		stored, err := f.repos.Bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.SeatsBooked)
		assert.Equal(t, 2, f.available(t, event.ID))
	})

	t.Run("non-owner is rejected without mutation", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 2})
		require.NoError(t, err)

		_, err = f.svc.UpdateBooking(ctx, bob, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(5)})
		require.ErrorIs(t, err, entity.ErrForbidden)
		assert.Equal(t, "Not authorized to update this booking.", err.Error())
		assert.Equal(t, 8, f.available(t, event.ID))
	})

	t.Run("admin may update any booking", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 2})
		require.NoError(t, err)

		_, err = f.svc.UpdateBooking(ctx, admin, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(5)})
		require.NoError(t, err)
		assert.Equal(t, 5, f.available(t, event.ID))
	})

	t.Run("invalid input never mutates", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 2})
		require.NoError(t, err)

		_, err = f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(-1)})
		assert.ErrorIs(t, err, entity.ErrInvalidInput)

		_, err = f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(4), Status: "pending"})
		assert.ErrorIs(t, err, entity.ErrInvalidInput)

		assert.Equal(t, 8, f.available(t, event.ID))
	})

	t.Run("status-only cancel keeps the seats", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 2})
		require.NoError(t, err)

		updated, err := f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(0), Status: "cancelled"})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCancelled, updated.Status)
		assert.Equal(t, 2, updated.SeatsBooked)
		assert.Equal(t, 8, f.available(t, event.ID))
	})

	t.Run("record failure reverts the adjustment", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 2})
		require.NoError(t, err)
		f.bookings.failUpdate = true

		_, err = f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(5)})
		require.ErrorIs(t, err, errStorage)
		assert.Equal(t, 8, f.available(t, event.ID))

		_, err = f.svc.UpdateBooking(ctx, alice, booking.ID, &service.UpdateBookingRequest{SeatsBooked: entity.Seats(1)})
		require.ErrorIs(t, err, errStorage)
		assert.Equal(t, 8, f.available(t, event.ID))
	})

	t.Run("missing booking", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		_, err := f.svc.UpdateBooking(ctx, alice, "missing", &service.UpdateBookingRequest{})
		assert.ErrorIs(t, err, entity.ErrBookingNotFound)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("only the owner may cancel", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
		require.NoError(t, err)

		for _, requester := range []entity.Requester{bob, admin} {
			err = f.svc.CancelBooking(ctx, requester, booking.ID)
			require.ErrorIs(t, err, entity.ErrForbidden)
			assert.Equal(t, "Not authorized to cancel this booking.", err.Error())
		}
		assert.Equal(t, 7, f.available(t, event.ID))

		owner := entity.Requester{ID: alice.ID, Role: entity.RoleAdmin}
		require.NoError(t, f.svc.CancelBooking(ctx, owner, booking.ID))
		assert.Equal(t, 10, f.available(t, event.ID))
	})

	t.Run("event gone still removes the booking", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
		require.NoError(t, err)
		require.NoError(t, f.repos.Events.Delete(ctx, event.ID))

		require.NoError(t, f.svc.CancelBooking(ctx, alice, booking.ID))

		_, err = f.repos.Bookings.GetByID(ctx, booking.ID)
		assert.ErrorIs(t, err, entity.ErrBookingNotFound)
		assert.Empty(t, f.tasks.releases)
	})

	t.Run("failed release is queued and the booking removed", func(t *testing.T) {
		f := newBookingFixture(t, func(r database.EventRepository) database.EventRepository {
			return &failingReturns{EventRepository: r}
		})
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
		require.NoError(t, err)

		require.NoError(t, f.svc.CancelBooking(ctx, alice, booking.ID))

		_, err = f.repos.Bookings.GetByID(ctx, booking.ID)
		assert.ErrorIs(t, err, entity.ErrBookingNotFound)
		assert.Equal(t, map[string]int{event.ID: 3}, f.tasks.releases)
	})

	t.Run("delete failure takes the seats back", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
		require.NoError(t, err)
		f.bookings.failDelete = true

		err = f.svc.CancelBooking(ctx, alice, booking.ID)
		require.ErrorIs(t, err, errStorage)
		assert.Equal(t, 7, f.available(t, event.ID))
	})

	t.Run("failed release and failed delete queue nothing", func(t *testing.T) {
		f := newBookingFixture(t, func(r database.EventRepository) database.EventRepository {
			return &failingReturns{EventRepository: r}
		})
		event := f.seedEvent(t, 10)
		booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 3})
		require.NoError(t, err)
		f.bookings.failDelete = true

		err = f.svc.CancelBooking(ctx, alice, booking.ID)
		require.ErrorIs(t, err, errStorage)
		assert.Empty(t, f.tasks.releases)
		assert.Equal(t, 7, f.available(t, event.ID))

		_, err = f.repos.Bookings.GetByID(ctx, booking.ID)
		require.NoError(t, err)

		f.bookings.failDelete = false
		require.NoError(t, f.svc.CancelBooking(ctx, alice, booking.ID))
		assert.Equal(t, map[string]int{event.ID: 3}, f.tasks.releases)
	})

	t.Run("missing booking", func(t *testing.T) {
		f := newBookingFixture(t, nil)
		assert.ErrorIs(t, f.svc.CancelBooking(ctx, alice, "missing"), entity.ErrBookingNotFound)
	})
}

func TestConcurrentBookingsNeverOverbook(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)
	event := f.seedEvent(t, 20)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 1})
		}()
	}
	wg.Wait()

	sums, err := f.repos.Bookings.SumSeatsByEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, sums[event.ID])
	assert.Equal(t, 0, f.available(t, event.ID))
}

func TestBookingReads(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, nil)
	event := f.seedEvent(t, 10)

	user := &entity.User{ID: alice.ID, Name: "Alice", Email: "alice@example.com", Role: entity.RoleUser}
	require.NoError(t, f.repos.Users.Create(ctx, user))

	booking, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: event.ID, SeatsBooked: 2})
	require.NoError(t, err)
	orphanEvent := f.seedEvent(t, 5)
	orphan, err := f.svc.CreateBooking(ctx, alice, &service.CreateBookingRequest{EventID: orphanEvent.ID, SeatsBooked: 1})
	require.NoError(t, err)
	require.NoError(t, f.repos.Events.Delete(ctx, orphanEvent.ID))

	t.Run("all bookings is admin only", func(t *testing.T) {
		_, err := f.svc.GetAllBookings(ctx, alice)
		assert.ErrorIs(t, err, entity.ErrForbidden)

		views, err := f.svc.GetAllBookings(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, views, 2)
	})

	t.Run("detail is populated for owner and admin", func(t *testing.T) {
		for _, requester := range []entity.Requester{alice, admin} {
			view, err := f.svc.GetBooking(ctx, requester, booking.ID)
			require.NoError(t, err)
			require.NotNil(t, view.Event)
			assert.Equal(t, "Go Meetup", view.Event.Title)
			assert.Equal(t, user.Summary(), view.User)
		}

		_, err := f.svc.GetBooking(ctx, bob, booking.ID)
		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("history renders a missing event as null", func(t *testing.T) {
		views, err := f.svc.GetUserBookings(ctx, alice)
		require.NoError(t, err)
		require.Len(t, views, 2)

		byID := map[string]*entity.BookingView{}
		for _, v := range views {
			byID[v.ID] = v
		}
		assert.NotNil(t, byID[booking.ID].Event)
		assert.Nil(t, byID[orphan.ID].Event)
		assert.Equal(t, alice.ID, byID[orphan.ID].User)

		views, err = f.svc.GetUserBookings(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}
