package models

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Active reports whether the status still holds the user's claim on the tour.
func (s BookingStatus) Active() bool {
	return s != BookingCancelled
}

// Booking is a user's claim on a tour.
type Booking struct {
	ID      string        `json:"id"`
	TourID  string        `json:"tourId"`
	UserID  string        `json:"userId"`
	Date    string        `json:"date"` // RFC 3339 creation timestamp
	Status  BookingStatus `json:"status"`
	Version int64         `json:"version"`
}

// BookingWithTour is a booking joined with its tour for the bookings page.
// Tour is nil when the tour has since been removed.
type BookingWithTour struct {
	Booking
	Tour *Tour `json:"tour,omitempty"`
}

// ToggleResult reports what a toggle request did.
type ToggleResult struct {
	Action    string `json:"action"` // "reserved" or "cancelled"
	BookingID string `json:"bookingId"`
}
