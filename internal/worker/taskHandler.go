package worker

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/internal/service"
	"github.com/ds124wfegd/event-booker/pkg/queue"
	"github.com/sirupsen/logrus"
)

// BookingNotifier delivers booking lifecycle events.
type BookingNotifier interface {
	Notify(ctx context.Context, evt *entity.BookingEvent) error
}

// TaskHandler executes tasks consumed from the queue.
type TaskHandler struct {
	ledger   *capacity.Ledger
	notifier BookingNotifier
}

func NewTaskHandler(ledger *capacity.Ledger, notifier BookingNotifier) *TaskHandler {
	return &TaskHandler{ledger: ledger, notifier: notifier}
}

// Handle matches queue.Handler. Malformed tasks fail permanently, anything
// else is retried by the queue.
func (h *TaskHandler) Handle(ctx context.Context, task *queue.Task) error {
	switch task.Type {
	case queue.TaskTypeReleaseSeats:
		return h.releaseSeats(ctx, task)
	case queue.TaskTypePublishBookingEvent:
		return h.publishBookingEvent(ctx, task)
	default:
		return queue.Permanent(fmt.Errorf("invalid task type %q", task.Type))
	}
}

func (h *TaskHandler) releaseSeats(ctx context.Context, task *queue.Task) error {
	eventID := task.GetString("event_id")
	seats := task.GetInt("seats")
	if eventID == "" || seats <= 0 {
		return queue.Permanent(fmt.Errorf("invalid release_seats payload in task %s", task.ID))
	}

	remaining, err := h.ledger.ReleaseByID(ctx, eventID, seats)
	if err != nil {
		return fmt.Errorf("release seats for event %s: %w", eventID, err)
	}

	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"event_id":  eventID,
		"seats":     seats,
		"remaining": remaining,
		"attempt":   task.Attempts,
	}).Info("Queued seat release applied")
	return nil
}

func (h *TaskHandler) publishBookingEvent(ctx context.Context, task *queue.Task) error {
	evt, err := service.BookingEventFromTask(task)
	if err != nil {
		return queue.Permanent(err)
	}
	if h.notifier == nil {
		return nil
	}
	return h.notifier.Notify(ctx, evt)
}
