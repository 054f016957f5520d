package booking

import (
	"context"
	"time"

	bookingRepo "tourbook/database/repository/booking"
	tourRepo "tourbook/database/repository/tour"
	"tourbook/models"
	"tourbook/services/notification"
	"tourbook/services/payment"

	"go.uber.org/zap"
)

// CreateBookingInput is the customer-facing creation request.
type CreateBookingInput struct {
	TourID       string `json:"tour_id"`
	CustomerID   string `json:"customer_id,omitempty"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	TravelDate   string `json:"travel_date"` // "YYYY-MM-DD"
	PartySize    int    `json:"party_size"`
	Note         string `json:"note,omitempty"`
}

// BookingService is the lifecycle engine: the only writer of booking status.
type BookingService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error)
	InitiatePayment(ctx context.Context, bookingID string, provider models.PaymentProvider) (*models.RedirectTarget, error)
	// HandleGatewayCallback is safe to invoke from any transport and any
	// number of times for the same callback; re-delivery is a no-op.
	HandleGatewayCallback(ctx context.Context, provider models.PaymentProvider, raw []byte) (*models.CallbackResult, error)
	StaffConfirmPayment(ctx context.Context, bookingID, staffID string, role models.ActorRole) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, actorID string, role models.ActorRole) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter bookingRepo.ListFilter, role models.ActorRole) ([]models.Booking, error)
	ListAttempts(ctx context.Context, bookingID string, role models.ActorRole) ([]models.PaymentAttempt, error)
	DeleteBooking(ctx context.Context, bookingID string, role models.ActorRole) error
	// ExpireOverdue applies DeadlineExpired to every Confirmed booking past
	// its window; the background sweep calls this periodically.
	ExpireOverdue(ctx context.Context) (int, error)
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo     bookingRepo.BookingRepository
	Tours    tourRepo.TourRepository
	Gateways payment.Registry
	Notifier notification.Dispatcher
	Window   time.Duration // Payment window for Confirmed bookings
	Logger   *zap.Logger

	// Clock is swappable for tests; nil means time.Now.
	Clock func() time.Time
}

func (s *DefaultBookingService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

var _ BookingService = (*DefaultBookingService)(nil)
