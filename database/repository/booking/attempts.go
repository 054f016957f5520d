package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"tourbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateAttempt inserts a new Pending payment attempt. The partial unique
// index on booking_id rejects a second Pending attempt for the same booking.
func (r *MongoBookingRepo) CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.attemptColl.InsertOne(ctxWithTimeout, attempt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrPendingAttemptExists
		}
		return fmt.Errorf("error creating payment attempt: %w", err)
	}
	return nil
}

// GetAttemptByRef retrieves an attempt by the reference we handed the gateway.
func (r *MongoBookingRepo) GetAttemptByRef(ctx context.Context, providerRef string) (*models.PaymentAttempt, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var attempt models.PaymentAttempt
	err := r.attemptColl.FindOne(ctxWithTimeout, bson.M{"provider_ref": providerRef}).Decode(&attempt)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch attempt %s: %w", providerRef, err)
	}
	return &attempt, nil
}

// ResolveAttempt conditionally moves a Pending attempt to its final status.
// A false return means the attempt was already resolved, which is how
// re-delivered callbacks are detected.
func (r *MongoBookingRepo) ResolveAttempt(ctx context.Context, attemptID string, status models.AttemptStatus, responseCode string, paidAt *time.Time) (bool, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": status, "response_code": responseCode}
	if paidAt != nil {
		set["paid_at"] = paidAt
	}
	filter := bson.M{"id": attemptID, "status": models.AttemptStatusPending}
	res, err := r.attemptColl.UpdateOne(ctxWithTimeout, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("error resolving attempt %s: %w", attemptID, err)
	}
	return res.ModifiedCount == 1, nil
}

// ListAttempts returns all attempts for a booking, oldest first. Attempts are
// never deleted; this is the payment audit trail staff review.
func (r *MongoBookingRepo) ListAttempts(ctx context.Context, bookingID string) ([]models.PaymentAttempt, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.attemptColl.Find(ctxWithTimeout, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctxWithTimeout)

	var attempts []models.PaymentAttempt
	for cursor.Next(ctxWithTimeout) {
		var a models.PaymentAttempt
		if err := cursor.Decode(&a); err != nil {
			return nil, fmt.Errorf("failed to decode attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, cursor.Err()
}
