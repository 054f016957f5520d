package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tourbook/config"
	"tourbook/models"
	"tourbook/services/booking"
	"tourbook/services/notification"
	"tourbook/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitInvoiceWorker runs the async worker in background.
func InitInvoiceWorker(mailer notification.Mailer) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendInvoice, handleInvoiceTask(mailer))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[InvoiceWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[InvoiceWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[InvoiceWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleInvoiceTask(mailer notification.Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.InvoicePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[InvoiceHandler] Invalid payload: %v", err)
			return err
		}

		if err := mailer.SendInvoice(ctx, p); err != nil {
			log.Printf("[InvoiceHandler] Failed to send invoice for booking %s: %v", p.BookingID, err)
			return err // asynq retries with backoff
		}
		return nil
	}
}

// InitExpirySweep proactively cancels overdue Confirmed bookings on a ticker.
// The lazy per-request check uses the same transition function, so the sweep
// only reduces how long expired holds stay visible to staff.
func InitExpirySweep(svc booking.BookingService, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := svc.ExpireOverdue(ctx); err != nil {
				log.Printf("[ExpirySweep] sweep failed: %v", err)
			}
			cancel()
		}
	}()
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[InvoiceWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
