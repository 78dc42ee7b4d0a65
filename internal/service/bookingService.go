package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/sirupsen/logrus"
)

type CreateBookingRequest struct {
	EventID     string `json:"eventId" validate:"required"`
	SeatsBooked int    `json:"seatsBooked" validate:"min=1"`
}

// UpdateBookingRequest changes a booking in place. A nil or zero
// SeatsBooked keeps the current count and an empty Status keeps the status.
type UpdateBookingRequest struct {
	SeatsBooked *int   `json:"seatsBooked"`
	Status      string `json:"status" validate:"omitempty,oneof=confirmed cancelled"`
}

type bookingService struct {
	bookingRepo database.BookingRepository
	eventRepo   database.EventRepository
	userRepo    database.UserRepository
	ledger      *capacity.Ledger
	tasks       TaskPublisher
	now         func() time.Time
}

func NewBookingService(
	bookingRepo database.BookingRepository,
	eventRepo database.EventRepository,
	userRepo database.UserRepository,
	ledger *capacity.Ledger,
	tasks TaskPublisher,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
		ledger:      ledger,
		tasks:       tasks,
		now:         time.Now,
	}
}

// CreateBooking reserves seats first and records the booking second. When the
// record cannot be written the reservation is handed back.
func (s *bookingService) CreateBooking(ctx context.Context, requester entity.Requester, req *CreateBookingRequest) (*entity.Booking, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.ledger.Reserve(ctx, event, req.SeatsBooked)
	if err != nil {
		return nil, err
	}

	booking := &entity.Booking{
		EventID:     event.ID,
		UserID:      requester.ID,
		SeatsBooked: req.SeatsBooked,
		Status:      entity.BookingStatusConfirmed,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		s.compensateRelease(ctx, event, req.SeatsBooked, "create")
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"event_id":   booking.EventID,
		"user_id":    booking.UserID,
		"seats":      booking.SeatsBooked,
		"remaining":  remaining,
	}).Info("Booking created")

	s.publishEvent(ctx, entity.BookingCreated, booking, remaining)
	return booking, nil
}

func (s *bookingService) UpdateBooking(ctx context.Context, requester entity.Requester, id string, req *UpdateBookingRequest) (*entity.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !requester.IsAdmin() && !booking.IsOwner(requester.ID) {
		return nil, &entity.ForbiddenError{Message: "Not authorized to update this booking."}
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	newSeats := booking.SeatsBooked
	if req.SeatsBooked != nil && *req.SeatsBooked != 0 {
		if *req.SeatsBooked < 0 {
			return nil, entity.NewValidationError("Must reserve at least 1 seat.")
		}
		newSeats = *req.SeatsBooked
	}

	delta := newSeats - booking.SeatsBooked
	var event *entity.Event
	remaining := -1
	if delta != 0 {
		event, err = s.eventRepo.GetByID(ctx, booking.EventID)
		if err != nil {
			return nil, err
		}
		remaining, err = s.ledger.Adjust(ctx, event, delta)
		if err != nil {
			return nil, err
		}
	}

	booking.SeatsBooked = newSeats
	if req.Status != "" {
		booking.Status = entity.BookingStatus(req.Status)
	}

	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		if delta > 0 {
			s.compensateRelease(ctx, event, delta, "update")
		} else if delta < 0 {
			if _, cerr := s.ledger.Reserve(ctx, event, -delta); cerr != nil {
				s.logDrift(cerr, booking, -delta, "failed to take back released seats after update error")
			}
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"event_id":   booking.EventID,
		"delta":      delta,
		"status":     booking.Status,
	}).Info("Booking updated")

	if remaining < 0 {
		remaining = s.currentAvailability(ctx, booking.EventID)
	}
	s.publishEvent(ctx, entity.BookingUpdated, booking, remaining)
	return booking, nil
}

// CancelBooking returns the booked seats and deletes the booking. Only the
// owner may cancel. The booking is removed even when its event is gone or
// the seats could not be handed back synchronously.
func (s *bookingService) CancelBooking(ctx context.Context, requester entity.Requester, id string) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !booking.IsOwner(requester.ID) {
		return &entity.ForbiddenError{Message: "Not authorized to cancel this booking."}
	}

	fields := logrus.Fields{
		"booking_id": booking.ID,
		"event_id":   booking.EventID,
		"seats":      booking.SeatsBooked,
	}

	// A release that could not run now is queued only once the booking is
	// gone, so a surviving booking never has its seats handed back.
	var (
		released     *entity.Event
		releaseLater bool
	)
	remaining := 0
	event, err := s.eventRepo.GetByID(ctx, booking.EventID)
	switch {
	case errors.Is(err, entity.ErrEventNotFound):
		logrus.WithFields(fields).Debug("Event is gone, nothing to release")
	case err != nil:
		logrus.WithFields(fields).WithError(err).Error("Failed to load event for cancellation")
		releaseLater = true
	default:
		remaining, err = s.ledger.Release(ctx, event, booking.SeatsBooked)
		if err != nil {
			logrus.WithFields(fields).WithError(err).Error("Failed to release seats")
			releaseLater = true
		} else {
			released = event
		}
	}

	if err := s.bookingRepo.Delete(ctx, booking.ID); err != nil {
		if released != nil {
			if _, rerr := s.ledger.Reserve(ctx, released, booking.SeatsBooked); rerr != nil {
				s.logDrift(rerr, booking, booking.SeatsBooked, "failed to take back seats after delete error")
			}
		}
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if releaseLater {
		s.scheduleRelease(ctx, booking.EventID, booking.SeatsBooked)
	}

	logrus.WithFields(fields).Info("Booking cancelled")

	s.publishEvent(ctx, entity.BookingCancelled, booking, remaining)
	return nil
}

func (s *bookingService) GetAllBookings(ctx context.Context, requester entity.Requester) ([]*entity.BookingView, error) {
	if !requester.IsAdmin() {
		return nil, &entity.ForbiddenError{Message: "Admin access required."}
	}

	bookings, err := s.bookingRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	return s.populate(ctx, bookings, true)
}

func (s *bookingService) GetBooking(ctx context.Context, requester entity.Requester, id string) (*entity.BookingView, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !requester.IsAdmin() && !booking.IsOwner(requester.ID) {
		return nil, &entity.ForbiddenError{Message: "Not authorized to view this booking."}
	}

	views, err := s.populate(ctx, []*entity.Booking{booking}, true)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// GetUserBookings is the booking history of the requester.
func (s *bookingService) GetUserBookings(ctx context.Context, requester entity.Requester) ([]*entity.BookingView, error) {
	bookings, err := s.bookingRepo.GetByUserID(ctx, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return s.populate(ctx, bookings, false)
}

// populate attaches event summaries and, when withUsers is set, user
// summaries. Missing events render as null, missing users as the bare id.
func (s *bookingService) populate(ctx context.Context, bookings []*entity.Booking, withUsers bool) ([]*entity.BookingView, error) {
	events := make(map[string]*entity.Event)
	users := make(map[string]*entity.User)
	views := make([]*entity.BookingView, 0, len(bookings))

	for _, b := range bookings {
		event, ok := events[b.EventID]
		if !ok {
			loaded, err := s.eventRepo.GetByID(ctx, b.EventID)
			if err != nil && !errors.Is(err, entity.ErrEventNotFound) {
				return nil, fmt.Errorf("failed to load event %s: %w", b.EventID, err)
			}
			event = loaded
			events[b.EventID] = loaded
		}

		var user *entity.User
		if withUsers {
			cached, ok := users[b.UserID]
			if !ok {
				loaded, err := s.userRepo.GetByID(ctx, b.UserID)
				if err != nil && !errors.Is(err, entity.ErrUserNotFound) {
					return nil, fmt.Errorf("failed to load user %s: %w", b.UserID, err)
				}
				cached = loaded
				users[b.UserID] = loaded
			}
			user = cached
		}

		views = append(views, entity.NewBookingView(b, event, user))
	}
	return views, nil
}

// compensateRelease hands back seats taken for a booking that was never
// written. A failed release is queued for retry.
func (s *bookingService) compensateRelease(ctx context.Context, event *entity.Event, seats int, op string) {
	if _, err := s.ledger.Release(ctx, event, seats); err != nil {
		logrus.WithFields(logrus.Fields{
			"event_id": event.ID,
			"seats":    seats,
			"op":       op,
		}).WithError(err).Error("Compensating release failed")
		s.scheduleRelease(ctx, event.ID, seats)
	}
}

func (s *bookingService) scheduleRelease(ctx context.Context, eventID string, seats int) {
	fields := logrus.Fields{"event_id": eventID, "seats": seats}
	if s.tasks == nil {
		logrus.WithFields(fields).Error("No task publisher, seats left unreleased")
		return
	}
	if err := s.tasks.PublishReleaseSeats(context.WithoutCancel(ctx), eventID, seats); err != nil {
		logrus.WithFields(fields).WithError(err).Error("Failed to schedule seat release")
		return
	}
	logrus.WithFields(fields).Warn("Seat release scheduled for retry")
}

func (s *bookingService) logDrift(err error, booking *entity.Booking, seats int, msg string) {
	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"event_id":   booking.EventID,
		"seats":      seats,
	}).WithError(err).Error("Capacity drift: " + msg)
}

func (s *bookingService) currentAvailability(ctx context.Context, eventID string) int {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return 0
	}
	return capacity.Resolve(event)
}

func (s *bookingService) publishEvent(ctx context.Context, eventType entity.BookingEventType, booking *entity.Booking, remaining int) {
	if s.tasks == nil {
		return
	}
	evt := &entity.BookingEvent{
		Type:           eventType,
		BookingID:      booking.ID,
		EventID:        booking.EventID,
		UserID:         booking.UserID,
		Seats:          booking.SeatsBooked,
		AvailableSeats: remaining,
		OccurredAt:     s.now(),
	}
	if err := s.tasks.PublishBookingEvent(context.WithoutCancel(ctx), evt); err != nil {
		logrus.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to publish booking event")
	}
}
