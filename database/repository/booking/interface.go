package bookingRepo

import (
	"context"

	"tourbook/models"
)

// BookingRepository is the typed access path to the bookings collection.
type BookingRepository interface {
	Create(ctx context.Context, booking models.Booking) (string, error)
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// FindByTourAndUser returns every booking for the pair, whatever its status.
	FindByTourAndUser(ctx context.Context, tourID, userID string) ([]models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	UpdateStatusIfVersion(ctx context.Context, id string, version int64, status models.BookingStatus) error
	Delete(ctx context.Context, id string) error
}
