package service

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/pkg/broker"
)

// MessageSender delivers a text notification, for example to a Telegram chat.
type MessageSender interface {
	SendMessage(text string) error
}

// BookingNotifier fans booking lifecycle events out to the broker and an
// optional chat sender.
type BookingNotifier struct {
	publisher broker.Publisher
	sender    MessageSender
}

func NewBookingNotifier(publisher broker.Publisher, sender MessageSender) *BookingNotifier {
	if publisher == nil {
		publisher = broker.NewLogPublisher()
	}
	return &BookingNotifier{publisher: publisher, sender: sender}
}

func (n *BookingNotifier) Notify(ctx context.Context, evt *entity.BookingEvent) error {
	var errs []error

	if err := n.publisher.Publish(ctx, broker.Message{Key: evt.EventID, Payload: evt}); err != nil {
		errs = append(errs, fmt.Errorf("failed to publish booking event: %w", err))
	}

	if n.sender != nil {
		if err := n.sender.SendMessage(formatBookingEvent(evt)); err != nil {
			errs = append(errs, fmt.Errorf("failed to send notification: %w", err))
		}
	}

	return errors.Join(errs...)
}

func formatBookingEvent(evt *entity.BookingEvent) string {
	var title string
	switch evt.Type {
	case entity.BookingCreated:
		title = "🎫 <b>Booking created</b>"
	case entity.BookingUpdated:
		title = "✏️ <b>Booking updated</b>"
	case entity.BookingCancelled:
		title = "❌ <b>Booking cancelled</b>"
	default:
		title = "<b>" + html.EscapeString(string(evt.Type)) + "</b>"
	}

	return fmt.Sprintf(
		"%s\n\nBooking: <code>%s</code>\nEvent: <code>%s</code>\nSeats: %d\nSeats left: %d",
		title,
		html.EscapeString(evt.BookingID),
		html.EscapeString(evt.EventID),
		evt.Seats,
		evt.AvailableSeats,
	)
}
