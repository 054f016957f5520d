package models

import "time"

// PaymentProvider selects which gateway adapter handles an attempt.
type PaymentProvider string

const (
	ProviderVNPay PaymentProvider = "vnpay"
	ProviderMomo  PaymentProvider = "momo"
)

// AttemptStatus tracks a single gateway-facing collection attempt.
type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "Pending"
	AttemptStatusSucceeded AttemptStatus = "Succeeded"
	AttemptStatusFailed    AttemptStatus = "Failed"
)

// PaymentAttempt is one try to collect money for a booking. Attempts are
// append-only; resolved attempts stay as the audit trail.
type PaymentAttempt struct {
	ID           string          `bson:"id" json:"id"`
	BookingID    string          `bson:"booking_id" json:"booking_id"`
	Provider     PaymentProvider `bson:"provider" json:"provider"`
	Amount       int64           `bson:"amount" json:"amount"` // Must equal the booking's total at creation
	ProviderRef  string          `bson:"provider_ref" json:"provider_ref"` // Our reference sent to the gateway
	ResponseCode string          `bson:"response_code,omitempty" json:"response_code,omitempty"`
	Status       AttemptStatus   `bson:"status" json:"status"`
	CreatedAt    time.Time       `bson:"created_at" json:"created_at"`
	PaidAt       *time.Time      `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// RedirectTarget is what a successful payment initiation hands back to the
// client: the gateway URL to send the customer to.
type RedirectTarget struct {
	Provider  PaymentProvider `json:"provider"`
	AttemptID string          `json:"attempt_id"`
	PayURL    string          `json:"pay_url"`
}

// CallbackResult is the provider-agnostic shape both gateway adapters
// normalize their callbacks into before anything touches booking state.
type CallbackResult struct {
	Provider     PaymentProvider `json:"provider"`
	ProviderRef  string          `json:"provider_ref"` // Matches PaymentAttempt.ProviderRef
	TxnRef       string          `json:"txn_ref"`      // Gateway-side transaction id
	Amount       int64           `json:"amount"`
	Success      bool            `json:"success"`
	ResponseCode string          `json:"response_code"`
}
