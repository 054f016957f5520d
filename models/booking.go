package models

import "time"

// BookingStatus is the four-value lifecycle enum. Transitions between values
// are applied only through the booking service's conditional status update.
type BookingStatus string

const (
	BookingStatusConfirmed   BookingStatus = "Confirmed"   // time-boxed hold, awaiting payment
	BookingStatusPaidPending BookingStatus = "PaidPending" // gateway reported success, awaiting staff reconciliation
	BookingStatusPaid        BookingStatus = "Paid"        // staff verified settlement; terminal
	BookingStatusCancelled   BookingStatus = "Cancelled"   // terminal
)

// ActorRole identifies who is asking for a transition.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleStaff    ActorRole = "staff"
	RoleAdmin    ActorRole = "admin"
)

// StatusChange is one entry of a booking's audit trail.
type StatusChange struct {
	From    BookingStatus `bson:"from" json:"from"`
	To      BookingStatus `bson:"to" json:"to"`
	Event   string        `bson:"event" json:"event"`
	ActorID string        `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	At      time.Time     `bson:"at" json:"at"`
}

// Booking represents one customer's reservation intent for a tour.
type Booking struct {
	ID           string         `bson:"id" json:"id"`                                       // Unique booking identifier (UUID)
	TourID       string         `bson:"tour_id" json:"tour_id"`                             // Tour being reserved
	CustomerID   string         `bson:"customer_id,omitempty" json:"customer_id,omitempty"` // Empty for guest bookings
	ContactName  string         `bson:"contact_name" json:"contact_name"`
	ContactPhone string         `bson:"contact_phone" json:"contact_phone"`
	TravelDate   string         `bson:"travel_date" json:"travel_date"` // "YYYY-MM-DD"
	PartySize    int            `bson:"party_size" json:"party_size"`   // Always >= 1
	Note         string         `bson:"note,omitempty" json:"note,omitempty"`
	UnitPrice    int64          `bson:"unit_price" json:"unit_price"`   // Per-person price captured at creation (minor units)
	TotalPrice   int64          `bson:"total_price" json:"total_price"` // unit_price * party_size
	Status       BookingStatus  `bson:"status" json:"status"`
	History      []StatusChange `bson:"history,omitempty" json:"history,omitempty"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at" json:"updated_at"`
}

// ExpiresAt returns the instant the payment window closes. Expiry is a pure
// function of created_at, so it survives restarts without a stored deadline.
func (b *Booking) ExpiresAt(window time.Duration) time.Time {
	return b.CreatedAt.Add(window)
}

// Expired reports whether the booking's hold has lapsed at the given instant.
// Only Confirmed bookings expire; paid and cancelled states are unaffected.
func (b *Booking) Expired(now time.Time, window time.Duration) bool {
	return b.Status == BookingStatusConfirmed && now.After(b.ExpiresAt(window))
}

// PublicStatus maps the internal enum to the coarse labels customers see.
func (b *Booking) PublicStatus() string {
	switch b.Status {
	case BookingStatusConfirmed:
		return "awaiting_payment"
	case BookingStatusPaidPending:
		return "awaiting_confirmation"
	case BookingStatusPaid:
		return "confirmed"
	case BookingStatusCancelled:
		return "cancelled"
	default:
		return string(b.Status)
	}
}
