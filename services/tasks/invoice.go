package tasks

import (
	"encoding/json"

	"tourbook/models"

	"github.com/hibiken/asynq"
)

const TypeSendInvoice = "invoice:send"

func NewInvoiceTask(payload models.InvoicePayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendInvoice, b)
	opts := []asynq.Option{asynq.MaxRetry(10), asynq.Queue("default")}

	return task, opts, nil
}
