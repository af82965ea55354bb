package rating

import (
	"context"
	"time"

	reviewRepo "tourbook/database/repository/review"
	tourRepo "tourbook/database/repository/tour"
	"tourbook/models"
	"tourbook/services/catalog"
	"tourbook/services/events"
	"tourbook/services/lock"

	"go.uber.org/zap"
)

// RatingService accepts reviews and keeps each tour's rating equal to the mean
// of its reviews.
type RatingService interface {
	SubmitReview(ctx context.Context, tourID string, input models.ReviewInput) (*models.Review, error)
	// Recompute rebuilds the aggregate from the reviews collection.
	Recompute(ctx context.Context, tourID string) (*models.Tour, error)
	ListReviews(ctx context.Context, tourID string) ([]models.Review, error)
}

// Reconciler schedules an out-of-band Recompute for a tour whose aggregate
// may be stale.
type Reconciler interface {
	EnqueueReconcile(ctx context.Context, tourID, reason string) error
}

// DefaultRatingService implements RatingService.
type DefaultRatingService struct {
	Tours      tourRepo.TourRepository
	Reviews    reviewRepo.ReviewRepository
	Catalog    catalog.CatalogService
	Locker     lock.Locker
	Events     events.Publisher
	Reconciler Reconciler // optional
	Logger     *zap.Logger

	MaxAttempts int
	Backoff     time.Duration
	Now         func() time.Time
}

func NewRatingService(tours tourRepo.TourRepository, reviews reviewRepo.ReviewRepository, cat catalog.CatalogService, locker lock.Locker, publisher events.Publisher, logger *zap.Logger) *DefaultRatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &DefaultRatingService{
		Tours:       tours,
		Reviews:     reviews,
		Catalog:     cat,
		Locker:      locker,
		Events:      publisher,
		Logger:      logger,
		MaxAttempts: 3,
		Backoff:     25 * time.Millisecond,
		Now:         time.Now,
	}
}
