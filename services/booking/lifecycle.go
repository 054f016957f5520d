package booking

import (
	"context"

	"tourbook/models"

	"go.uber.org/zap"
)

// Lifecycle event names recorded in the booking history.
const (
	EventCreate          = "CreateBooking"
	EventInitiatePayment = "InitiatePayment"
	EventGatewayCallback = "GatewayCallback"
	EventDeadlineExpired = "DeadlineExpired"
	EventCancel          = "Cancel"
	EventStaffConfirm    = "StaffConfirmPayment"
)

// allowedTransitions is the edge set of the lifecycle state machine. Paid and
// Cancelled are terminal; everything else is rejected before touching storage.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusConfirmed:   {models.BookingStatusPaidPending, models.BookingStatusCancelled},
	models.BookingStatusPaidPending: {models.BookingStatusPaid, models.BookingStatusCancelled},
}

func transitionAllowed(from, to models.BookingStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// applyTransition drives every state change through the ledger's
// compare-and-swap. It is idempotent: a booking already in the target state
// comes back as a successful no-op, and a lost CAS race re-reads the row to
// decide between no-op and InvalidTransitionError. The returned boolean reports
// whether this call was the one that actually moved the state; side effects
// that must fire exactly once key off it.
func (s *DefaultBookingService) applyTransition(ctx context.Context, b *models.Booking, to models.BookingStatus, event, actorID string) (*models.Booking, bool, error) {
	if b.Status == to {
		return b, false, nil
	}
	if !transitionAllowed(b.Status, to) {
		return nil, false, &InvalidTransitionError{BookingID: b.ID, From: b.Status, Event: event}
	}

	change := models.StatusChange{
		From:    b.Status,
		To:      to,
		Event:   event,
		ActorID: actorID,
		At:      s.now(),
	}
	ok, err := s.Repo.UpdateStatus(ctx, b.ID, b.Status, change)
	if err != nil {
		return nil, false, err
	}
	if ok {
		updated := *b
		updated.Status = to
		updated.UpdatedAt = change.At
		updated.History = append(updated.History, change)
		return &updated, true, nil
	}

	// Lost the race: someone else moved the state first. Re-read and decide.
	current, err := s.Repo.GetByID(ctx, b.ID)
	if err != nil {
		return nil, false, err
	}
	if current.Status == to {
		return current, false, nil
	}
	s.Logger.Debug("transition lost CAS race",
		zap.String("booking_id", b.ID),
		zap.String("event", event),
		zap.String("observed", string(current.Status)))
	return nil, false, &InvalidTransitionError{BookingID: b.ID, From: current.Status, Event: event}
}
