package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/database/memory"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAudit(t *testing.T) (*database.Repositories, *entity.Event, *entity.Event) {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewRepositories()

	healthy := &entity.Event{Title: "Healthy", TotalSeats: 10, AvailableSeats: entity.Seats(7)}
	drifted := &entity.Event{Title: "Drifted", TotalSeats: 10, AvailableSeats: entity.Seats(9)}
	require.NoError(t, repos.Events.Create(ctx, healthy))
	require.NoError(t, repos.Events.Create(ctx, drifted))

	require.NoError(t, repos.Bookings.Create(ctx, &entity.Booking{EventID: healthy.ID, UserID: "u", SeatsBooked: 3}))
	require.NoError(t, repos.Bookings.Create(ctx, &entity.Booking{EventID: drifted.ID, UserID: "u", SeatsBooked: 4}))

	return repos, healthy, drifted
}

func TestCapacityAuditDetectsDrift(t *testing.T) {
	ctx := context.Background()
	repos, _, drifted := seedAudit(t)
	w := worker.NewCapacityAuditWorker(repos.Events, repos.Bookings, capacity.NewLedger(repos.Events), time.Minute, false)

	drifts, err := w.Audit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []worker.Drift{{EventID: drifted.ID, Expected: 6, Actual: 9}}, drifts)

	stored, err := repos.Events.GetByID(ctx, drifted.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, capacity.Resolve(stored), "read-only audit must not write")
}

func TestCapacityAuditRepairs(t *testing.T) {
	ctx := context.Background()
	repos, _, drifted := seedAudit(t)
	w := worker.NewCapacityAuditWorker(repos.Events, repos.Bookings, capacity.NewLedger(repos.Events), time.Minute, true)

	_, err := w.Audit(ctx)
	require.NoError(t, err)

	stored, err := repos.Events.GetByID(ctx, drifted.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, capacity.Resolve(stored))

	drifts, err := w.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestCapacityAuditLegacyEvent(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	legacy := &entity.Event{Title: "Legacy", TotalSeats: 5}
	require.NoError(t, repos.Events.Create(ctx, legacy))

	w := worker.NewCapacityAuditWorker(repos.Events, repos.Bookings, capacity.NewLedger(repos.Events), time.Minute, false)
	drifts, err := w.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestCapacityAuditWorkerStopsOnCancel(t *testing.T) {
	repos := memory.NewRepositories()
	w := worker.NewCapacityAuditWorker(repos.Events, repos.Bookings, capacity.NewLedger(repos.Events), 10*time.Millisecond, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
