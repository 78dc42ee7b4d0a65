package capacity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database/memory"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (s failingStore) TakeSeats(context.Context, string, int) (int, error)   { return 0, s.err }
func (s failingStore) ReturnSeats(context.Context, string, int) (int, error) { return 0, s.err }

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		event *entity.Event
		want  int
	}{
		{name: "nil event", event: nil, want: 0},
		{name: "available seats set", event: &entity.Event{TotalSeats: 10, AvailableSeats: entity.Seats(4)}, want: 4},
		{name: "available seats zero", event: &entity.Event{TotalSeats: 10, AvailableSeats: entity.Seats(0)}, want: 0},
		{name: "legacy record falls back to total", event: &entity.Event{TotalSeats: 7}, want: 7},
		{name: "nothing set", event: &entity.Event{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, capacity.Resolve(tt.event))
		})
	}
}

func newEvent(t *testing.T, total int, available *int) (*capacity.Ledger, *entity.Event, func() *entity.Event) {
	t.Helper()

	repo := memory.NewEventRepository()
	event := &entity.Event{Title: "Concert", TotalSeats: total, AvailableSeats: available}
	require.NoError(t, repo.Create(context.Background(), event))

	reload := func() *entity.Event {
		stored, err := repo.GetByID(context.Background(), event.ID)
		require.NoError(t, err)
		return stored
	}
	return capacity.NewLedger(repo), event, reload
}

func TestLedgerReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("takes seats when enough remain", func(t *testing.T) {
		ledger, event, reload := newEvent(t, 10, entity.Seats(10))

		remaining, err := ledger.Reserve(ctx, event, 4)
		require.NoError(t, err)
		assert.Equal(t, 6, remaining)
		assert.Equal(t, 6, *event.AvailableSeats)
		assert.Equal(t, 6, capacity.Resolve(reload()))
	})

	t.Run("uses total seats for legacy records", func(t *testing.T) {
		ledger, event, reload := newEvent(t, 5, nil)

		remaining, err := ledger.Reserve(ctx, event, 5)
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)
		assert.Equal(t, 0, capacity.Resolve(reload()))
	})

	t.Run("rejects without mutation when short", func(t *testing.T) {
		ledger, event, reload := newEvent(t, 10, entity.Seats(6))

		_, err := ledger.Reserve(ctx, event, 7)
		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrNotEnoughSeats))

		var insufficient *entity.InsufficientSeatsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 6, insufficient.Available)
		assert.Equal(t, 7, insufficient.Requested)
		assert.Equal(t, 6, capacity.Resolve(reload()))
	})

	t.Run("rejects quantity below one", func(t *testing.T) {
		ledger, event, reload := newEvent(t, 10, nil)

		for _, q := range []int{0, -3} {
			_, err := ledger.Reserve(ctx, event, q)
			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrInvalidInput))
		}
		assert.Nil(t, reload().AvailableSeats)
	})

	t.Run("store guard wins over a stale event", func(t *testing.T) {
		ledger, event, reload := newEvent(t, 10, entity.Seats(10))
		stale := *event

		_, err := ledger.Reserve(ctx, event, 8)
		require.NoError(t, err)

		_, err = ledger.Reserve(ctx, &stale, 5)
		var insufficient *entity.InsufficientSeatsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 2, insufficient.Available)
		assert.Equal(t, 2, capacity.Resolve(reload()))
	})

	t.Run("stale low count does not block a reservation", func(t *testing.T) {
		ledger, event, reload := newEvent(t, 10, entity.Seats(0))
		stale := *event
		_, err := ledger.ReleaseByID(ctx, event.ID, 4)
		require.NoError(t, err)

		remaining, err := ledger.Reserve(ctx, &stale, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, remaining)
		assert.Equal(t, 2, *stale.AvailableSeats)
		assert.Equal(t, 2, capacity.Resolve(reload()))
	})

	t.Run("missing event", func(t *testing.T) {
		ledger := capacity.NewLedger(memory.NewEventRepository())

		_, err := ledger.Reserve(ctx, &entity.Event{ID: "gone", TotalSeats: 3}, 1)
		assert.True(t, errors.Is(err, entity.ErrEventNotFound))
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		ledger := capacity.NewLedger(failingStore{err: boom})

		_, err := ledger.Reserve(ctx, &entity.Event{ID: "e", TotalSeats: 3}, 1)
		assert.ErrorIs(t, err, boom)
	})
}

func TestLedgerConcurrentReserveNeverOverbooks(t *testing.T) {
	ledger, event, reload := newEvent(t, 50, nil)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		success atomic.Int64
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot := *event
			if _, err := ledger.Reserve(ctx, &snapshot, 1); err == nil {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), success.Load())
	assert.Equal(t, 0, capacity.Resolve(reload()))
}

func TestLedgerAdjust(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		available int
		delta     int
		want      int
		wantErr   error
	}{
		{name: "grow within capacity", available: 6, delta: 3, want: 3},
		{name: "grow beyond capacity", available: 2, delta: 3, want: 2, wantErr: entity.ErrNotEnoughSeats},
		{name: "shrink always succeeds", available: 0, delta: -4, want: 4},
		{name: "zero delta is a no-op", available: 5, delta: 0, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, event, reload := newEvent(t, 10, entity.Seats(tt.available))

			_, err := ledger.Adjust(ctx, event, tt.delta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, capacity.Resolve(reload()))
		})
	}
}

func TestLedgerRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("restores seats", func(t *testing.T) {
		ledger, event, reload := newEvent(t, 10, entity.Seats(6))

		remaining, err := ledger.Release(ctx, event, 4)
		require.NoError(t, err)
		assert.Equal(t, 10, remaining)
		assert.Equal(t, 10, capacity.Resolve(reload()))
	})

	t.Run("missing event is a silent no-op", func(t *testing.T) {
		ledger := capacity.NewLedger(memory.NewEventRepository())

		_, err := ledger.Release(ctx, &entity.Event{ID: "gone"}, 4)
		assert.NoError(t, err)

		_, err = ledger.Release(ctx, nil, 4)
		assert.NoError(t, err)

		_, err = ledger.ReleaseByID(ctx, "gone", 2)
		assert.NoError(t, err)
	})

	t.Run("store failure is reported", func(t *testing.T) {
		boom := errors.New("timeout")
		ledger := capacity.NewLedger(failingStore{err: boom})

		_, err := ledger.Release(ctx, &entity.Event{ID: "e"}, 1)
		assert.ErrorIs(t, err, boom)
	})
}
