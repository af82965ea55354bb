package tourRepo

import (
	"context"

	"tourbook/models"
)

// TourRepository is the typed access path to the tours collection.
type TourRepository interface {
	GetByID(ctx context.Context, id string) (*models.Tour, error)
	List(ctx context.Context) ([]models.Tour, error)
	ListByLocation(ctx context.Context, location string) ([]models.Tour, error)
	Create(ctx context.Context, input models.TourInput) (string, error)
	Update(ctx context.Context, id string, input models.TourInput) error
	Delete(ctx context.Context, id string) error
	// UpdateRatingIfVersion writes the derived aggregate only while the tour
	// still carries the version the aggregate was computed against.
	UpdateRatingIfVersion(ctx context.Context, id string, version int64, rating *float64, reviewCount int) error
}
