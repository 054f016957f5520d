package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	bookingRepo "tourbook/database/repository/booking"
	"tourbook/middleware"
	"tourbook/models"
	"tourbook/services/booking"
	"tourbook/services/payment"
	"tourbook/utils"

	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	service booking.BookingService
	window  time.Duration
	logger  *zap.Logger
}

// NewBookingHandler creates a BookingHandler.
func NewBookingHandler(service booking.BookingService, window time.Duration, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, window: window, logger: logger}
}

// bookingView decorates a booking with the fields the UI renders: the coarse
// customer-facing label and the countdown to the payment deadline.
func (h *BookingHandler) bookingView(b *models.Booking) gin.H {
	view := gin.H{
		"booking":       b,
		"public_status": b.PublicStatus(),
	}
	if b.Status == models.BookingStatusConfirmed {
		expiresAt := b.ExpiresAt(h.window)
		remaining := time.Until(expiresAt)
		if remaining < 0 {
			remaining = 0
		}
		view["expires_at"] = expiresAt
		view["seconds_remaining"] = int64(remaining.Seconds())
	}
	return view
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		validationErr   *booking.ValidationError
		transitionErr   *booking.InvalidTransitionError
		forbiddenErr    *booking.ForbiddenError
		gatewayErr      *payment.GatewayError
		verificationErr *payment.VerificationError
	)
	switch {
	case errors.As(err, &validationErr):
		utils.JSONError(c, http.StatusBadRequest, "Validation failed", validationErr.Error())
	case errors.As(err, &transitionErr):
		utils.JSONError(c, http.StatusConflict, "Invalid transition", transitionErr.Error())
	case errors.As(err, &forbiddenErr):
		utils.JSONError(c, http.StatusForbidden, "Forbidden", forbiddenErr.Error())
	case errors.As(err, &gatewayErr):
		utils.JSONError(c, http.StatusBadGateway, "Payment gateway unavailable", gatewayErr.Error())
	case errors.As(err, &verificationErr):
		utils.JSONError(c, http.StatusBadRequest, "Callback verification failed", verificationErr.Error())
	case errors.Is(err, bookingRepo.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "Not found", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
		return
	}

	if actorID, _ := middleware.Actor(c); actorID != "" {
		input.CustomerID = actorID
	}

	b, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.bookingView(b))
}

// GetBooking handles GET /api/bookings/:id. Lazy expiry runs inside the
// service, so the returned status is never a stale Confirmed.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.bookingView(b))
}

// ListBookings handles GET /api/bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actorID, role := middleware.Actor(c)

	filter := bookingRepo.ListFilter{
		Status:     models.BookingStatus(c.Query("status")),
		TourID:     c.Query("tour_id"),
		CustomerID: c.Query("customer_id"),
	}
	if role != models.RoleStaff && role != models.RoleAdmin {
		filter.CustomerID = actorID
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), filter, role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"), actorID, role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.bookingView(b))
}

// StaffConfirmPayment handles POST /api/staff/bookings/:id/confirm — the
// manual reconciliation step that commits PaidPending to Paid.
func (h *BookingHandler) StaffConfirmPayment(c *gin.Context) {
	staffID, role := middleware.Actor(c)
	b, err := h.service.StaffConfirmPayment(c.Request.Context(), c.Param("id"), staffID, role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.bookingView(b))
}

// ListAttempts handles GET /api/staff/bookings/:id/attempts.
func (h *BookingHandler) ListAttempts(c *gin.Context) {
	_, role := middleware.Actor(c)
	attempts, err := h.service.ListAttempts(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// DeleteBooking handles DELETE /api/admin/bookings/:id.
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	_, role := middleware.Actor(c)
	if err := h.service.DeleteBooking(c.Request.Context(), c.Param("id"), role); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// Health handles GET /health.
func (h *BookingHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
