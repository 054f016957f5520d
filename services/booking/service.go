package booking

import (
	"context"
	"fmt"
	"time"

	bookingRepo "tourbook/database/repository/booking"
	"tourbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBooking validates input, captures the tour's current unit price, and
// opens the time-boxed Confirmed hold.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	if input.PartySize < 1 {
		return nil, NewValidationError("party_size", "must be at least 1")
	}
	if input.TourID == "" {
		return nil, NewValidationError("tour_id", "required")
	}
	if input.ContactName == "" {
		return nil, NewValidationError("contact_name", "required")
	}
	if input.ContactPhone == "" {
		return nil, NewValidationError("contact_phone", "required")
	}

	// The date must be interpreted in the same location as "today", or a
	// booking for today gets rejected near midnight on non-UTC servers.
	now := s.now()
	travelDate, err := time.ParseInLocation("2006-01-02", input.TravelDate, now.Location())
	if err != nil {
		return nil, NewValidationError("travel_date", "expected YYYY-MM-DD")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if travelDate.Before(today) {
		return nil, NewValidationError("travel_date", "must not be in the past")
	}

	tour, err := s.Tours.GetByID(ctx, input.TourID)
	if err != nil {
		return nil, NewValidationError("tour_id", "unknown tour")
	}

	booking := &models.Booking{
		ID:           uuid.New().String(),
		TourID:       tour.ID,
		CustomerID:   input.CustomerID,
		ContactName:  input.ContactName,
		ContactPhone: input.ContactPhone,
		TravelDate:   input.TravelDate,
		PartySize:    input.PartySize,
		Note:         input.Note,
		UnitPrice:    tour.UnitPrice,
		TotalPrice:   tour.UnitPrice * int64(input.PartySize),
		Status:       models.BookingStatusConfirmed,
		History: []models.StatusChange{{
			To:      models.BookingStatusConfirmed,
			Event:   EventCreate,
			ActorID: input.CustomerID,
			At:      now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.Logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("tour_id", booking.TourID),
		zap.Int("party_size", booking.PartySize),
		zap.Int64("total_price", booking.TotalPrice))
	return booking, nil
}

// GetBooking returns the booking after applying lazy expiry.
func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.ensureFresh(ctx, b)
}

// ListBookings returns bookings for the requester. Customers must scope the
// query to their own id; staff and admin see everything.
func (s *DefaultBookingService) ListBookings(ctx context.Context, filter bookingRepo.ListFilter, role models.ActorRole) ([]models.Booking, error) {
	if role != models.RoleStaff && role != models.RoleAdmin && filter.CustomerID == "" {
		return nil, &ForbiddenError{Role: role, Event: "ListBookings"}
	}

	bookings, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	// Lazy expiry on the read path keeps stale Confirmed rows out of staff views.
	now := s.now()
	for i := range bookings {
		if bookings[i].Expired(now, s.Window) {
			fresh, err := s.ensureFresh(ctx, &bookings[i])
			if err != nil {
				s.Logger.Warn("lazy expiry during list failed",
					zap.String("booking_id", bookings[i].ID), zap.Error(err))
				continue
			}
			bookings[i] = *fresh
		}
	}
	return bookings, nil
}

// StaffConfirmPayment is the manual reconciliation step: a staff member
// verified funds actually settled and commits PaidPending to Paid. The CAS
// winner dispatches the customer notification exactly once.
func (s *DefaultBookingService) StaffConfirmPayment(ctx context.Context, bookingID, staffID string, role models.ActorRole) (*models.Booking, error) {
	if role != models.RoleStaff && role != models.RoleAdmin {
		return nil, &ForbiddenError{Role: role, Event: EventStaffConfirm}
	}

	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	updated, moved, err := s.applyTransition(ctx, b, models.BookingStatusPaid, EventStaffConfirm, staffID)
	if err != nil {
		return nil, err
	}
	if moved {
		s.Logger.Info("payment confirmed by staff",
			zap.String("booking_id", bookingID), zap.String("staff_id", staffID))
		if err := s.Notifier.DispatchBookingPaid(ctx, updated); err != nil {
			// Never roll back the Paid transition over a notification failure;
			// the dispatcher retries out-of-band.
			s.Logger.Error("failed to dispatch paid notification",
				zap.String("booking_id", bookingID), zap.Error(err))
		}
	}
	return updated, nil
}

// CancelBooking applies a user or staff cancellation. Customers may release
// only their own Confirmed hold; only staff can cancel a PaidPending booking
// (disputed payment). Cancelling an already-cancelled booking is a no-op.
func (s *DefaultBookingService) CancelBooking(ctx context.Context, bookingID, actorID string, role models.ActorRole) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b, err = s.ensureFresh(ctx, b); err != nil {
		return nil, err
	}

	// Ownership: a customer may only cancel a booking tied to their own id.
	// Guest bookings have no customer id; knowing the booking id is the
	// capability there.
	if role != models.RoleStaff && role != models.RoleAdmin {
		if b.CustomerID != "" && actorID != b.CustomerID {
			return nil, &ForbiddenError{Role: role, Event: EventCancel}
		}
		if b.Status == models.BookingStatusPaidPending {
			return nil, &ForbiddenError{Role: role, Event: EventCancel}
		}
	}

	updated, moved, err := s.applyTransition(ctx, b, models.BookingStatusCancelled, EventCancel, actorID)
	if err != nil {
		return nil, err
	}
	if moved {
		s.Logger.Info("booking cancelled",
			zap.String("booking_id", bookingID),
			zap.String("actor_id", actorID),
			zap.String("role", string(role)))
	}
	return updated, nil
}

// ListAttempts exposes the payment audit trail to staff.
func (s *DefaultBookingService) ListAttempts(ctx context.Context, bookingID string, role models.ActorRole) ([]models.PaymentAttempt, error) {
	if role != models.RoleStaff && role != models.RoleAdmin {
		return nil, &ForbiddenError{Role: role, Event: "ListAttempts"}
	}
	return s.Repo.ListAttempts(ctx, bookingID)
}

// DeleteBooking is the administrative hard delete. It bypasses the state
// machine entirely, which is why it is gated on the admin role.
func (s *DefaultBookingService) DeleteBooking(ctx context.Context, bookingID string, role models.ActorRole) error {
	if role != models.RoleAdmin {
		return &ForbiddenError{Role: role, Event: "DeleteBooking"}
	}
	if err := s.Repo.Delete(ctx, bookingID); err != nil {
		return err
	}
	s.Logger.Warn("booking hard-deleted", zap.String("booking_id", bookingID))
	return nil
}
