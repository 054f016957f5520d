package booking

import (
	"context"
	"time"

	"tourbook/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InitiatePayment opens a Pending payment attempt for a Confirmed booking and
// returns the gateway redirect target. The booking's status never changes
// here; only a gateway callback can move it forward.
func (s *DefaultBookingService) InitiatePayment(ctx context.Context, bookingID string, provider models.PaymentProvider) (*models.RedirectTarget, error) {
	gateway, err := s.Gateways.Get(provider)
	if err != nil {
		return nil, NewValidationError("provider", err.Error())
	}

	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b, err = s.ensureFresh(ctx, b); err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusConfirmed {
		return nil, &InvalidTransitionError{BookingID: b.ID, From: b.Status, Event: EventInitiatePayment}
	}

	// Amount integrity: the attempt must carry exactly unit_price x party_size.
	if b.TotalPrice != b.UnitPrice*int64(b.PartySize) {
		return nil, NewValidationError("amount", "booking total does not match unit price and party size")
	}

	attempt := &models.PaymentAttempt{
		ID:          uuid.New().String(),
		BookingID:   b.ID,
		Provider:    provider,
		Amount:      b.TotalPrice,
		ProviderRef: uuid.New().String(),
		Status:      models.AttemptStatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.Repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, &InvalidTransitionError{
			BookingID: b.ID,
			From:      b.Status,
			Event:     EventInitiatePayment,
			Reason:    err.Error(),
		}
	}

	payURL, err := gateway.Initiate(ctx, b, attempt.ProviderRef)
	if err != nil {
		// Leave no Pending attempt behind so the customer can retry at once.
		if _, resolveErr := s.Repo.ResolveAttempt(ctx, attempt.ID, models.AttemptStatusFailed, "initiate_failed", nil); resolveErr != nil {
			s.Logger.Error("failed to resolve aborted attempt",
				zap.String("attempt_id", attempt.ID), zap.Error(resolveErr))
		}
		return nil, err
	}

	s.Logger.Info("payment initiated",
		zap.String("booking_id", b.ID),
		zap.String("attempt_id", attempt.ID),
		zap.String("provider", string(provider)),
		zap.Int64("amount", attempt.Amount))

	return &models.RedirectTarget{
		Provider:  provider,
		AttemptID: attempt.ID,
		PayURL:    payURL,
	}, nil
}

// HandleGatewayCallback is the single entry point for provider callbacks,
// whether they arrive as IPN posts or user-facing return requests. It is
// idempotent by construction: re-delivery of a callback whose outcome is
// already applied resolves to a no-op, and a callback arriving after expiry
// is recorded as an anomaly rather than reviving the booking.
func (s *DefaultBookingService) HandleGatewayCallback(ctx context.Context, provider models.PaymentProvider, raw []byte) (*models.CallbackResult, error) {
	gateway, err := s.Gateways.Get(provider)
	if err != nil {
		return nil, NewValidationError("provider", err.Error())
	}

	result, err := gateway.VerifyCallback(raw)
	if err != nil {
		// Signature failures are security events: logged, rejected, no state change.
		s.Logger.Warn("rejected gateway callback",
			zap.String("provider", string(provider)), zap.Error(err))
		return nil, err
	}

	attempt, err := s.Repo.GetAttemptByRef(ctx, result.ProviderRef)
	if err != nil {
		s.Logger.Warn("callback references unknown attempt",
			zap.String("provider", string(provider)),
			zap.String("provider_ref", result.ProviderRef))
		return nil, err
	}

	b, err := s.Repo.GetByID(ctx, attempt.BookingID)
	if err != nil {
		return nil, err
	}
	if b, err = s.ensureFresh(ctx, b); err != nil {
		return nil, err
	}

	if !result.Success {
		// Failed payment: the attempt resolves, the booking stays Confirmed
		// and the customer may retry within the window.
		if _, err := s.Repo.ResolveAttempt(ctx, attempt.ID, models.AttemptStatusFailed, result.ResponseCode, nil); err != nil {
			return nil, err
		}
		s.Logger.Info("gateway reported failed payment",
			zap.String("booking_id", b.ID),
			zap.String("attempt_id", attempt.ID),
			zap.String("response_code", result.ResponseCode))
		return result, nil
	}

	// Any amount mismatch is a hard verification failure; no tolerance.
	if result.Amount != attempt.Amount || result.Amount != b.TotalPrice {
		s.Logger.Error("callback amount mismatch",
			zap.String("booking_id", b.ID),
			zap.String("attempt_id", attempt.ID),
			zap.Int64("expected", attempt.Amount),
			zap.Int64("received", result.Amount))
		if _, err := s.Repo.ResolveAttempt(ctx, attempt.ID, models.AttemptStatusFailed, "amount_mismatch", nil); err != nil {
			s.Logger.Error("failed to resolve mismatched attempt", zap.Error(err))
		}
		return nil, &ValidationError{Field: "amount", Message: "callback amount does not match attempt"}
	}

	paidAt := s.now()
	switch b.Status {
	case models.BookingStatusConfirmed:
		updated, moved, err := s.applyTransition(ctx, b, models.BookingStatusPaidPending, EventGatewayCallback, string(provider))
		if err != nil {
			if _, ok := err.(*InvalidTransitionError); ok {
				// Raced with expiry or cancel between the read and the CAS.
				return s.recordLateSuccess(ctx, attempt, result, paidAt)
			}
			return nil, err
		}
		if moved {
			if _, err := s.Repo.ResolveAttempt(ctx, attempt.ID, models.AttemptStatusSucceeded, result.ResponseCode, &paidAt); err != nil {
				s.Logger.Error("failed to resolve succeeded attempt",
					zap.String("attempt_id", attempt.ID), zap.Error(err))
			}
			s.Logger.Info("payment callback accepted",
				zap.String("booking_id", updated.ID),
				zap.String("attempt_id", attempt.ID),
				zap.String("txn_ref", result.TxnRef))
		}
		return result, nil

	case models.BookingStatusPaidPending, models.BookingStatusPaid:
		// Re-delivered callback; the outcome is already applied.
		s.Logger.Debug("duplicate gateway callback ignored",
			zap.String("booking_id", b.ID), zap.String("attempt_id", attempt.ID))
		return result, nil

	case models.BookingStatusCancelled:
		return s.recordLateSuccess(ctx, attempt, result, paidAt)

	default:
		return nil, &InvalidTransitionError{BookingID: b.ID, From: b.Status, Event: EventGatewayCallback}
	}
}

// recordLateSuccess handles the gateway success that arrives after the
// booking auto-cancelled. The money moved, so the attempt is resolved
// Succeeded for the audit trail, but the cancelled booking is never revived;
// staff follow up on the anomaly log.
func (s *DefaultBookingService) recordLateSuccess(ctx context.Context, attempt *models.PaymentAttempt, result *models.CallbackResult, paidAt time.Time) (*models.CallbackResult, error) {
	if _, err := s.Repo.ResolveAttempt(ctx, attempt.ID, models.AttemptStatusSucceeded, result.ResponseCode, &paidAt); err != nil {
		s.Logger.Error("failed to resolve late attempt",
			zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
	s.Logger.Warn("anomaly: successful payment callback for cancelled booking",
		zap.String("booking_id", attempt.BookingID),
		zap.String("attempt_id", attempt.ID),
		zap.String("txn_ref", result.TxnRef),
		zap.Int64("amount", result.Amount))
	return result, nil
}
