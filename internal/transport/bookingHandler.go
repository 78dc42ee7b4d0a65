package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/ds124wfegd/event-booker/internal/service"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

type CreateBookingResponse struct {
	Message string          `json:"message"`
	Booking *entity.Booking `json:"booking"`
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}

	var req service.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), r, &req)
	if err != nil {
		var insufficient *entity.InsufficientSeatsError
		if errors.As(err, &insufficient) {
			respondError(c, http.StatusBadRequest,
				fmt.Sprintf("Booking failed. Only %d seats remaining.", insufficient.Available))
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateBookingResponse{Message: "Booking successful", Booking: booking})
}

func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}

	var req service.UpdateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := h.bookingService.UpdateBooking(c.Request.Context(), r, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}

	if err := h.bookingService.CancelBooking(c.Request.Context(), r, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAllBookings возвращает все бронирования
func (h *BookingHandler) GetAllBookings(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}

	bookings, err := h.bookingService.GetAllBookings(c.Request.Context(), r)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), r, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) GetMyHistory(c *gin.Context) {
	r, ok := requester(c)
	if !ok {
		return
	}

	bookings, err := h.bookingService.GetUserBookings(c.Request.Context(), r)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}
