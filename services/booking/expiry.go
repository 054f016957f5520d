package booking

import (
	"context"

	"tourbook/models"

	"go.uber.org/zap"
)

const expirySweepBatch = 200

// ensureFresh applies lazy expiry: if the booking's payment window has
// lapsed, the DeadlineExpired transition is applied before the caller's own
// operation proceeds. Both this path and the background sweep go through
// applyTransition, so computing expiry twice cannot double-cancel.
func (s *DefaultBookingService) ensureFresh(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if !b.Expired(s.now(), s.Window) {
		return b, nil
	}

	updated, moved, err := s.applyTransition(ctx, b, models.BookingStatusCancelled, EventDeadlineExpired, "")
	if err != nil {
		// A lost race means a concurrent payment or cancel beat the expiry;
		// whatever state won is the fresh one.
		if _, ok := err.(*InvalidTransitionError); ok {
			return s.Repo.GetByID(ctx, b.ID)
		}
		return nil, err
	}
	if moved {
		s.Logger.Info("booking expired",
			zap.String("booking_id", b.ID),
			zap.Time("created_at", b.CreatedAt))
	}
	return updated, nil
}

// ExpireOverdue proactively cancels Confirmed bookings past their window so
// staff views do not fill with expired-but-unprocessed holds. Each booking
// goes through the same CAS transition as the lazy path.
func (s *DefaultBookingService) ExpireOverdue(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.Window)
	overdue, err := s.Repo.ListExpiredConfirmed(ctx, cutoff, expirySweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		_, moved, err := s.applyTransition(ctx, &overdue[i], models.BookingStatusCancelled, EventDeadlineExpired, "")
		if err != nil {
			if _, ok := err.(*InvalidTransitionError); ok {
				continue // raced with a payment or cancel; nothing to do
			}
			return expired, err
		}
		if moved {
			expired++
		}
	}
	if expired > 0 {
		s.Logger.Info("expiry sweep cancelled overdue bookings", zap.Int("count", expired))
	}
	return expired, nil
}
