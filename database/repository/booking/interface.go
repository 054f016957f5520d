package bookingRepo

import (
	"context"
	"errors"
	"time"

	"tourbook/models"
)

// ErrNotFound is returned when a booking or attempt does not exist.
var ErrNotFound = errors.New("booking not found")

// ErrPendingAttemptExists is returned when a second Pending attempt is
// created for the same booking. Enforced by a partial unique index, so two
// concurrent initiations cannot both win.
var ErrPendingAttemptExists = errors.New("booking already has a pending payment attempt")

// ListFilter narrows ListBookings queries. Zero values mean "any".
type ListFilter struct {
	Status     models.BookingStatus
	TourID     string
	CustomerID string
	Limit      int64
}

// BookingRepository is the booking ledger: the single source of truth for a
// booking and its payment attempts. UpdateStatus is the compare-and-swap
// primitive every state transition goes through.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// UpdateStatus atomically moves the booking from expectedFrom to the
	// change's target status. Returns false when the booking is no longer in
	// expectedFrom; the caller must re-read and decide whether that is a
	// no-op or an invalid transition.
	UpdateStatus(ctx context.Context, id string, expectedFrom models.BookingStatus, change models.StatusChange) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Booking, error)
	// ListExpiredConfirmed returns Confirmed bookings created before cutoff,
	// for the background expiry sweep.
	ListExpiredConfirmed(ctx context.Context, cutoff time.Time, limit int64) ([]models.Booking, error)
	// Delete is the privileged administrative removal; it bypasses the state
	// machine and must never be reachable by non-admin actors.
	Delete(ctx context.Context, id string) error

	CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	GetAttemptByRef(ctx context.Context, providerRef string) (*models.PaymentAttempt, error)
	// ResolveAttempt moves a Pending attempt to Succeeded or Failed. Returns
	// false when the attempt was already resolved (duplicate callback).
	ResolveAttempt(ctx context.Context, attemptID string, status models.AttemptStatus, responseCode string, paidAt *time.Time) (bool, error)
	ListAttempts(ctx context.Context, bookingID string) ([]models.PaymentAttempt, error)
}
