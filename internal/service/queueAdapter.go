package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/pkg/queue"
	"github.com/sirupsen/logrus"
)

// QueueAdapter turns follow-up work into queue tasks.
type QueueAdapter struct {
	queue queue.Queue
}

func NewQueueAdapter(q queue.Queue) *QueueAdapter {
	return &QueueAdapter{queue: q}
}

func (a *QueueAdapter) PublishReleaseSeats(ctx context.Context, eventID string, seats int) error {
	if a.queue == nil {
		return errors.New("task queue is not configured")
	}
	task := queue.NewTask(queue.TaskTypeReleaseSeats, map[string]interface{}{
		"event_id": eventID,
		"seats":    seats,
	})
	return a.queue.Publish(ctx, task)
}

func (a *QueueAdapter) PublishBookingEvent(ctx context.Context, evt *entity.BookingEvent) error {
	if a.queue == nil {
		return errors.New("task queue is not configured")
	}
	return a.queue.Publish(ctx, queue.NewTask(queue.TaskTypePublishBookingEvent, bookingEventData(evt)))
}

func bookingEventData(evt *entity.BookingEvent) map[string]interface{} {
	return map[string]interface{}{
		"type":            string(evt.Type),
		"booking_id":      evt.BookingID,
		"event_id":        evt.EventID,
		"user_id":         evt.UserID,
		"seats":           evt.Seats,
		"available_seats": evt.AvailableSeats,
		"occurred_at":     evt.OccurredAt.Format(time.RFC3339Nano),
	}
}

// BookingEventFromTask decodes the payload of a publish_booking_event task.
func BookingEventFromTask(task *queue.Task) (*entity.BookingEvent, error) {
	evt := &entity.BookingEvent{
		Type:           entity.BookingEventType(task.GetString("type")),
		BookingID:      task.GetString("booking_id"),
		EventID:        task.GetString("event_id"),
		UserID:         task.GetString("user_id"),
		Seats:          task.GetInt("seats"),
		AvailableSeats: task.GetInt("available_seats"),
		OccurredAt:     task.GetTime("occurred_at"),
	}
	if evt.Type == "" || evt.BookingID == "" {
		return nil, fmt.Errorf("malformed booking event task %s", task.ID)
	}
	return evt, nil
}

// DirectPublisher runs follow-up work in process when no task queue is
// configured. Booking events are delivered in the background.
type DirectPublisher struct {
	ledger   *capacity.Ledger
	notifier *BookingNotifier
	timeout  time.Duration
}

func NewDirectPublisher(ledger *capacity.Ledger, notifier *BookingNotifier) *DirectPublisher {
	return &DirectPublisher{ledger: ledger, notifier: notifier, timeout: 10 * time.Second}
}

func (p *DirectPublisher) PublishReleaseSeats(ctx context.Context, eventID string, seats int) error {
	_, err := p.ledger.ReleaseByID(context.WithoutCancel(ctx), eventID, seats)
	return err
}

func (p *DirectPublisher) PublishBookingEvent(ctx context.Context, evt *entity.BookingEvent) error {
	if p.notifier == nil {
		return nil
	}
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.notifier.Notify(notifyCtx, evt); err != nil {
			logrus.WithError(err).WithField("booking_id", evt.BookingID).Warn("Failed to deliver booking event")
		}
	}()
	return nil
}
