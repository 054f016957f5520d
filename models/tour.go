package models

import "time"

// Tour is the read-side view of a catalog entry the booking engine needs.
// Catalog CRUD lives elsewhere; only id and pricing matter here.
type Tour struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	UnitPrice int64     `bson:"unit_price" json:"unit_price"` // Per-person price in minor units (VND)
	Currency  string    `bson:"currency" json:"currency"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
