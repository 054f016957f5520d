package tourRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tourbook/database"
	"tourbook/models"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const tourCacheTTL = 10 * time.Minute

// TourRepository is the read side of the tour catalog the booking engine
// depends on. Catalog CRUD is owned elsewhere.
type TourRepository interface {
	GetByID(ctx context.Context, id string) (*models.Tour, error)
}

// MongoTourRepo implements TourRepository with a redis read-through cache,
// since unit prices are read on every booking creation and payment initiation.
type MongoTourRepo struct {
	coll  *mongo.Collection
	cache *redis.Client
}

// NewMongoTourRepo creates a new instance of TourRepository using MongoDB.
func NewMongoTourRepo(cache *redis.Client) TourRepository {
	coll := database.DB().Collection("tours")
	repo := &MongoTourRepo{coll: coll, cache: cache}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func (r *MongoTourRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create tour indexes: %w", err)
	}
	return nil
}

func (r *MongoTourRepo) cacheKey(id string) string {
	return "tour:" + id
}

// GetByID retrieves a tour, preferring the cache.
func (r *MongoTourRepo) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	if r.cache != nil {
		if data, err := r.cache.Get(ctx, r.cacheKey(id)).Result(); err == nil {
			var tour models.Tour
			if err := json.Unmarshal([]byte(data), &tour); err == nil {
				return &tour, nil
			}
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tour models.Tour
	if err := r.coll.FindOne(ctxWithTimeout, bson.M{"id": id}).Decode(&tour); err != nil {
		return nil, fmt.Errorf("tour not found: %w", err)
	}

	if r.cache != nil {
		if data, err := json.Marshal(tour); err == nil {
			r.cache.Set(ctx, r.cacheKey(id), data, tourCacheTTL)
		}
	}
	return &tour, nil
}
