package notification

import (
	"context"

	"tourbook/models"
	"tourbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqDispatcher enqueues invoice delivery as an asynq task so the worker
// retries failed sends without involving the booking transition.
type AsynqDispatcher struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewAsynqDispatcher(client *asynq.Client, logger *zap.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, logger: logger}
}

func (d *AsynqDispatcher) DispatchBookingPaid(ctx context.Context, booking *models.Booking) error {
	payload := models.InvoicePayload{
		BookingID:    booking.ID,
		TourID:       booking.TourID,
		CustomerID:   booking.CustomerID,
		ContactName:  booking.ContactName,
		ContactPhone: booking.ContactPhone,
		TravelDate:   booking.TravelDate,
		PartySize:    booking.PartySize,
		TotalPrice:   booking.TotalPrice,
		PaidAt:       booking.UpdatedAt,
	}

	task, opts, err := tasks.NewInvoiceTask(payload)
	if err != nil {
		return err
	}
	info, err := d.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return err
	}
	d.logger.Info("invoice task enqueued",
		zap.String("booking_id", booking.ID),
		zap.String("task_id", info.ID))
	return nil
}

var _ Dispatcher = (*AsynqDispatcher)(nil)

// LogMailer is the default Mailer: it records the send instead of delivering,
// since email transport is owned by an external collaborator.
type LogMailer struct {
	Logger *zap.Logger
}

func (m *LogMailer) SendInvoice(_ context.Context, payload models.InvoicePayload) error {
	m.Logger.Info("invoice email sent",
		zap.String("booking_id", payload.BookingID),
		zap.String("contact_name", payload.ContactName),
		zap.Int64("total_price", payload.TotalPrice))
	return nil
}

var _ Mailer = (*LogMailer)(nil)
