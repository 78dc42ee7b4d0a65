package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/sirupsen/logrus"
)

// CreateEventRequest represents the data needed to create an event
type CreateEventRequest struct {
	Title          string              `json:"title" validate:"required"`
	Description    string              `json:"description"`
	Date           entity.FlexibleTime `json:"date"`
	Location       string              `json:"location"`
	TotalSeats     int                 `json:"totalSeats" validate:"min=0"`
	AvailableSeats *int                `json:"availableSeats" validate:"omitempty,min=0"`
	Price          float64             `json:"price" validate:"min=0"`
}

// UpdateEventRequest represents the data needed to update an event.
// Capacity is changed through TotalSeats only.
type UpdateEventRequest struct {
	Title          *string              `json:"title,omitempty"`
	Description    *string              `json:"description,omitempty"`
	Date           *entity.FlexibleTime `json:"date,omitempty"`
	Location       *string              `json:"location,omitempty"`
	TotalSeats     *int                 `json:"totalSeats,omitempty" validate:"omitempty,min=0"`
	AvailableSeats *int                 `json:"availableSeats,omitempty"`
	Price          *float64             `json:"price,omitempty" validate:"omitempty,min=0"`
}

type eventService struct {
	eventRepo database.EventRepository
	ledger    *capacity.Ledger
}

// NewEventService creates a new instance of EventService
func NewEventService(eventRepo database.EventRepository, ledger *capacity.Ledger) EventService {
	return &eventService{
		eventRepo: eventRepo,
		ledger:    ledger,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, requester entity.Requester, req *CreateEventRequest) (*entity.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, entity.NewValidationError("Date is required")
	}

	event := &entity.Event{
		Title:          req.Title,
		Description:    req.Description,
		Date:           req.Date.Time,
		Location:       req.Location,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.AvailableSeats,
		Price:          req.Price,
		Organizer:      requester.ID,
	}
	if event.AvailableSeats == nil {
		event.AvailableSeats = entity.Seats(req.TotalSeats)
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":    event.ID,
		"organizer":   event.Organizer,
		"total_seats": event.TotalSeats,
	}).Info("Event created")

	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*entity.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *eventService) GetAllEvents(ctx context.Context) ([]*entity.Event, error) {
	events, err := s.eventRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get all events: %w", err)
	}

	return events, nil
}

// UpdateEvent edits descriptive fields directly and moves capacity through
// the ledger, so shrinking below what is already booked fails.
func (s *eventService) UpdateEvent(ctx context.Context, requester entity.Requester, id string, req *UpdateEventRequest) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !requester.IsAdmin() && !event.IsOrganizer(requester.ID) {
		return nil, &entity.ForbiddenError{Message: "Not authorized to update this event."}
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.AvailableSeats != nil {
		return nil, entity.NewValidationError("availableSeats cannot be set directly, change totalSeats instead")
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, entity.NewValidationError("Title is required")
		}
		event.Title = title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Date != nil {
		if req.Date.IsZero() {
			return nil, entity.NewValidationError("Date is required")
		}
		event.Date = req.Date.Time
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Price != nil {
		event.Price = *req.Price
	}

	// Growing capacity hands seats to the pool, shrinking takes them out.
	delta := 0
	if req.TotalSeats != nil {
		delta = *req.TotalSeats - event.TotalSeats
	}
	if delta != 0 {
		if _, err := s.ledger.Adjust(ctx, event, -delta); err != nil {
			return nil, err
		}
		event.TotalSeats = *req.TotalSeats
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if delta != 0 {
			if _, cerr := s.ledger.Adjust(ctx, event, delta); cerr != nil {
				logrus.WithFields(logrus.Fields{
					"event_id": event.ID,
					"delta":    delta,
				}).WithError(cerr).Error("Capacity drift: failed to revert seat change after update error")
			}
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return event, nil
}

// DeleteEvent leaves bookings in place. Cancelling them later releases nothing.
func (s *eventService) DeleteEvent(ctx context.Context, requester entity.Requester, id string) error {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !requester.IsAdmin() && !event.IsOrganizer(requester.ID) {
		return &entity.ForbiddenError{Message: "Not authorized to delete this event."}
	}

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	logrus.WithField("event_id", id).Info("Event deleted")
	return nil
}
