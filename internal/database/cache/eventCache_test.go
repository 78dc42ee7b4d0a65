package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/database/cache"
	"github.com/ds124wfegd/event-booker/internal/database/memory"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowReads runs afterRead once, between the store read and the cache fill.
type slowReads struct {
	database.EventRepository
	once      sync.Once
	afterRead func()
}

func (s *slowReads) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	event, err := s.EventRepository.GetByID(ctx, id)
	if err == nil && s.afterRead != nil {
		s.once.Do(s.afterRead)
	}
	return event, err
}

func newCachedEvents(t *testing.T, next database.EventRepository) (*cache.EventCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return cache.NewEventCache(next, client, 5*time.Minute), mr
}

func TestEventCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventRepository()
	events, mr := newCachedEvents(t, store)

	event := &entity.Event{Title: "Jazz Night", TotalSeats: 10, AvailableSeats: entity.Seats(10)}
	require.NoError(t, store.Create(ctx, event))

	got, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", got.Title)
	assert.True(t, mr.Exists("event:"+event.ID))

	_, err = events.TakeSeats(ctx, event.ID, 3)
	require.NoError(t, err)
	assert.False(t, mr.Exists("event:"+event.ID))

	got, err = events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, capacity.Resolve(got))
}

func TestEventCacheMissingEventIsNotCached(t *testing.T) {
	events, mr := newCachedEvents(t, memory.NewEventRepository())

	_, err := events.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrEventNotFound)
	assert.Empty(t, mr.Keys())
}

func TestStaleCachedCountDoesNotBlockBooking(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventRepository()
	reads := &slowReads{EventRepository: store}
	events, _ := newCachedEvents(t, reads)
	ledger := capacity.NewLedger(events)

	event := &entity.Event{Title: "Sold Out Show", TotalSeats: 4, AvailableSeats: entity.Seats(0)}
	require.NoError(t, store.Create(ctx, event))

	// a cancellation lands after the miss read 0 but before the fill
	reads.afterRead = func() {
		_, err := ledger.ReleaseByID(ctx, event.ID, 4)
		require.NoError(t, err)
	}

	cached, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, capacity.Resolve(cached))

	cached, err = events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, 0, capacity.Resolve(cached), "cache holds the stale count")

	remaining, err := ledger.Reserve(ctx, cached, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	stored, err := store.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, capacity.Resolve(stored))

	refreshed, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, capacity.Resolve(refreshed))
}
