package reviewRepo

import (
	"context"

	"tourbook/models"
)

// ReviewRepository is the typed access path to the normalized reviews collection.
type ReviewRepository interface {
	Create(ctx context.Context, review models.Review) (string, error)
	ListByTour(ctx context.Context, tourID string) ([]models.Review, error)
	Delete(ctx context.Context, id string) error
}
