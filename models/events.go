package models

import "time"

// Event types published after a successful write.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventBookingConfirmed = "booking.confirmed"
	EventReviewSubmitted  = "review.submitted"
	EventRatingUpdated    = "rating.updated"
)

// Event is the envelope written to the event stream.
type Event struct {
	Type       string            `json:"type"`
	TourID     string            `json:"tourId"`
	UserID     string            `json:"userId,omitempty"`
	EntityID   string            `json:"entityId,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// ReconcilePayload is the task body for a rating repair.
type ReconcilePayload struct {
	TourID string `json:"tourId"`
	Reason string `json:"reason"`
}
