package payment

import (
	"context"
	"fmt"

	"tourbook/models"
)

// Gateway abstracts one external payment provider. Both implementations sign
// their own request shapes but normalize callbacks into models.CallbackResult
// so the booking service never sees provider-specific fields.
type Gateway interface {
	Provider() models.PaymentProvider
	// Initiate constructs a signed payment request for the booking and
	// returns the URL the customer is redirected to. It performs no booking
	// mutation; the caller records the Pending attempt.
	Initiate(ctx context.Context, booking *models.Booking, providerRef string) (string, error)
	// VerifyCallback authenticates a raw callback payload (query string or
	// JSON body, provider-dependent) and extracts the normalized result.
	// Payloads failing signature verification are rejected — this is the
	// security boundary keeping forged callbacks out of the state machine.
	VerifyCallback(raw []byte) (*models.CallbackResult, error)
}

// GatewayError wraps transient failures talking to a provider during
// initiation. The booking stays Confirmed and the caller may retry.
type GatewayError struct {
	Provider models.PaymentProvider
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// VerificationError signals a callback payload that failed the authenticity
// check. Logged as a security event; never mutates booking state.
type VerificationError struct {
	Provider models.PaymentProvider
	Reason   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("callback verification failed (%s): %s", e.Provider, e.Reason)
}

// Registry resolves a provider name to its gateway adapter.
type Registry map[models.PaymentProvider]Gateway

// NewRegistry builds a registry from the given gateways.
func NewRegistry(gateways ...Gateway) Registry {
	reg := make(Registry, len(gateways))
	for _, g := range gateways {
		reg[g.Provider()] = g
	}
	return reg
}

// Get returns the gateway for a provider, or an error for unknown names.
func (r Registry) Get(provider models.PaymentProvider) (Gateway, error) {
	g, ok := r[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported payment provider: %s", provider)
	}
	return g, nil
}
