package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/sirupsen/logrus"
)

// Drift is a mismatch between an event's available seats and what its
// bookings imply.
type Drift struct {
	EventID  string
	Expected int
	Actual   int
}

// CapacityAuditWorker periodically recomputes availability from bookings and
// reports events whose stored count disagrees. With repair enabled it moves
// the stored count to the expected value through the ledger.
type CapacityAuditWorker struct {
	events   database.EventRepository
	bookings database.BookingRepository
	ledger   *capacity.Ledger
	interval time.Duration
	repair   bool
}

func NewCapacityAuditWorker(
	events database.EventRepository,
	bookings database.BookingRepository,
	ledger *capacity.Ledger,
	interval time.Duration,
	repair bool,
) *CapacityAuditWorker {
	return &CapacityAuditWorker{
		events:   events,
		bookings: bookings,
		ledger:   ledger,
		interval: interval,
		repair:   repair,
	}
}

func (w *CapacityAuditWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.WithField("interval", w.interval.String()).Info("Capacity audit worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Capacity audit worker stopped")
			return
		case <-ticker.C:
			if _, err := w.Audit(ctx); err != nil {
				logrus.WithError(err).Error("Capacity audit failed")
			}
		}
	}
}

// Audit runs one pass and returns the drift it found.
func (w *CapacityAuditWorker) Audit(ctx context.Context) ([]Drift, error) {
	events, err := w.events.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	booked, err := w.bookings.SumSeatsByEvent(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, event := range events {
		expected := event.TotalSeats - booked[event.ID]
		actual := capacity.Resolve(event)
		if expected == actual {
			continue
		}

		drift := Drift{EventID: event.ID, Expected: expected, Actual: actual}
		drifts = append(drifts, drift)

		entry := logrus.WithFields(logrus.Fields{
			"event_id": event.ID,
			"expected": expected,
			"actual":   actual,
		})
		entry.Warn("Capacity drift detected")

		if !w.repair {
			continue
		}
		if expected < 0 {
			entry.Error("Event is overbooked, refusing to repair")
			continue
		}
		// Adjust takes seats for a positive delta, so pass actual - expected.
		if _, err := w.ledger.Adjust(ctx, event, actual-expected); err != nil {
			entry.WithError(err).Error("Failed to repair capacity drift")
			continue
		}
		entry.Info("Capacity drift repaired")
	}

	if len(drifts) == 0 {
		logrus.WithField("events", len(events)).Debug("Capacity audit found no drift")
	}
	return drifts, nil
}
