package models

import "time"

// InvoicePayload is the queued message for the confirmation/invoice email
// sent when a booking reaches Paid.
type InvoicePayload struct {
	BookingID    string    `json:"bookingId"`
	TourID       string    `json:"tourId"`
	CustomerID   string    `json:"customerId,omitempty"`
	ContactName  string    `json:"contactName"`
	ContactPhone string    `json:"contactPhone"`
	TravelDate   string    `json:"travelDate"`
	PartySize    int       `json:"partySize"`
	TotalPrice   int64     `json:"totalPrice"`
	PaidAt       time.Time `json:"paidAt"`
}
