package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse is returned by operations without a body of their own.
type MessageResponse struct {
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Message: message})
}

// handleError maps domain errors to a status and caller-facing message.
// Unexpected errors are logged and hidden behind a generic message.
func handleError(c *gin.Context, err error) {
	var (
		validation   *entity.ValidationError
		insufficient *entity.InsufficientSeatsError
		forbidden    *entity.ForbiddenError
	)

	switch {
	case errors.As(err, &validation):
		respondError(c, http.StatusBadRequest, validation.Message)
	case errors.As(err, &insufficient):
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Not enough seats. Only %d remaining.", insufficient.Available))
	case errors.Is(err, entity.ErrEventNotFound):
		respondError(c, http.StatusNotFound, "Event not found")
	case errors.Is(err, entity.ErrBookingNotFound):
		respondError(c, http.StatusNotFound, "Booking not found")
	case errors.Is(err, entity.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, entity.ErrUserAlreadyExists):
		respondError(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, entity.ErrInvalidCredentials):
		respondError(c, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, entity.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "Not authorized")
	case errors.As(err, &forbidden):
		respondError(c, http.StatusForbidden, forbidden.Message)
	case errors.Is(err, entity.ErrForbidden):
		respondError(c, http.StatusForbidden, "Forbidden")
	case errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		respondError(c, http.StatusGatewayTimeout, "Request timed out")
	default:
		_ = c.Error(err)
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err).Error("Unexpected error")
		respondError(c, http.StatusInternalServerError, "Server error")
	}
}

// requester returns the authenticated caller or aborts with 401.
func requester(c *gin.Context) (entity.Requester, bool) {
	r, ok := middleware.GetRequester(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "No token, authorization denied")
	}
	return r, ok
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
