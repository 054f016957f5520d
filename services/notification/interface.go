package notification

import (
	"context"

	"tourbook/models"
)

// Dispatcher is the fire-and-forget side effect invoked when a booking
// reaches Paid. Failures are the dispatcher's problem (retried out-of-band);
// they must never block or roll back the underlying transition.
type Dispatcher interface {
	DispatchBookingPaid(ctx context.Context, booking *models.Booking) error
}

// Mailer delivers the actual invoice email. Delivery is an external
// collaborator; the default implementation only logs.
type Mailer interface {
	SendInvoice(ctx context.Context, payload models.InvoicePayload) error
}
