package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps "Struct.Field.tag" to the message returned to callers.
var fieldMessages = map[string]string{
	"CreateBookingRequest.EventID.required": "eventId is required",
	"CreateBookingRequest.SeatsBooked.min":  "Must reserve at least 1 seat.",
	"RegisterUserRequest.Name.required":     "Name is required",
	"RegisterUserRequest.Email.required":    "Please include a valid email",
	"RegisterUserRequest.Email.email":       "Please include a valid email",
	"RegisterUserRequest.Password.min":      "Password must be 6 or more chars",
	"RegisterUserRequest.Password.required": "Password must be 6 or more chars",
	"LoginRequest.Email.required":           "Email is required",
	"LoginRequest.Password.required":        "Password is required",
	"UpdateUserRequest.Email.email":         "Please include a valid email",
	"UpdateUserRequest.Password.min":        "Password must be 6 or more chars",
	"UpdateUserRequest.Role.oneof":          "Role must be user or admin",
	"CreateEventRequest.Title.required":     "Title is required",
	"CreateEventRequest.TotalSeats.min":     "totalSeats cannot be negative",
	"CreateEventRequest.AvailableSeats.min": "availableSeats cannot be negative",
	"CreateEventRequest.Price.min":          "Price cannot be negative",
	"UpdateEventRequest.TotalSeats.min":     "totalSeats cannot be negative",
	"UpdateEventRequest.Price.min":          "Price cannot be negative",
	"UpdateBookingRequest.Status.oneof":     "Status must be confirmed or cancelled",
}

// validateRequest runs struct validation and reports the first failure as
// an entity.ValidationError.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return entity.NewValidationError("validation failed: %v", err)
	}

	fe := fieldErrs[0]
	key := fmt.Sprintf("%s.%s", fe.StructNamespace(), fe.Tag())
	if msg, ok := fieldMessages[key]; ok {
		return &entity.ValidationError{Message: msg}
	}
	return entity.NewValidationError("%s is invalid", lowerFirst(fe.Field()))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
