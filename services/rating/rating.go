package rating

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tourbook/models"
	"tourbook/services"
	"tourbook/services/lock"

	"go.uber.org/zap"
)

// compensateTimeout bounds the cleanup after a failed aggregate write.
const compensateTimeout = 5 * time.Second

// SubmitReview stores the review and folds it into the tour's rating.
//
// The aggregate write is conditioned on the tour version read for the same
// computation. On a version conflict the reviews are re-read and the write is
// retried, up to MaxAttempts. If the aggregate still cannot be written the
// review is removed again and ErrConflict is returned, so a failed submission
// leaves no trace. When that removal fails too, a reconcile task is queued.
func (s *DefaultRatingService) SubmitReview(ctx context.Context, tourID string, input models.ReviewInput) (*models.Review, error) {
	if err := validateReview(tourID, input); err != nil {
		return nil, err
	}

	held, unlock, err := s.lockTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	review, tour, err := s.submitLocked(held, tourID, input)
	unlock()
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Review submitted",
		zap.String("tourId", tourID),
		zap.String("reviewId", review.ID),
		zap.Int("rating", review.Rating),
		zap.Int("reviewCount", tour.ReviewCount),
	)
	s.publish(ctx, ratingEvent(tourID, tour.Rating, tour.ReviewCount))
	s.publish(ctx, models.Event{
		Type:     models.EventReviewSubmitted,
		TourID:   tourID,
		UserID:   review.UserID,
		EntityID: review.ID,
		Attributes: map[string]string{
			"rating": strconv.Itoa(review.Rating),
		},
	})
	return review, nil
}

func (s *DefaultRatingService) submitLocked(held context.Context, tourID string, input models.ReviewInput) (*models.Review, *models.Tour, error) {
	if _, err := s.Tours.GetByID(held, tourID); err != nil {
		return nil, nil, services.StoreError(err)
	}

	review := models.Review{
		TourID:   tourID,
		UserID:   input.UserID,
		UserName: strings.TrimSpace(input.UserName),
		Rating:   input.Rating,
		Comment:  strings.TrimSpace(input.Comment),
		Date:     s.Now().UTC().Format(time.RFC3339Nano),
	}
	id, err := s.Reviews.Create(held, review)
	if err != nil {
		return nil, nil, services.StoreError(err)
	}
	review.ID = id

	tour, err := s.recomputeLocked(held, tourID)
	if err != nil {
		s.compensate(held, review, err)
		return nil, nil, err
	}
	return &review, tour, nil
}

func (s *DefaultRatingService) Recompute(ctx context.Context, tourID string) (*models.Tour, error) {
	if strings.TrimSpace(tourID) == "" {
		return nil, services.InvalidInput("tourId is required")
	}

	held, unlock, err := s.lockTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	tour, err := s.recomputeLocked(held, tourID)
	unlock()
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ratingEvent(tourID, tour.Rating, tour.ReviewCount))
	return tour, nil
}

func (s *DefaultRatingService) ListReviews(ctx context.Context, tourID string) ([]models.Review, error) {
	if strings.TrimSpace(tourID) == "" {
		return nil, services.InvalidInput("tourId is required")
	}
	if _, err := s.Catalog.GetTour(ctx, tourID); err != nil {
		return nil, err
	}
	reviews, err := s.Reviews.ListByTour(ctx, tourID)
	if err != nil {
		return nil, services.StoreError(err)
	}
	return reviews, nil
}

// recomputeLocked runs the read-compute-conditional-write loop. Each attempt
// reads the tour version before reading the reviews, so a successful write
// covers every review inserted before that version was read. The written tour
// is handed to the catalog so cached copies move to the new version.
func (s *DefaultRatingService) recomputeLocked(ctx context.Context, tourID string) (*models.Tour, error) {
	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := s.wait(ctx, attempt); err != nil {
				return nil, fmt.Errorf("%w: %w", services.ErrStoreUnavailable, err)
			}
		}

		tour, err := s.Tours.GetByID(ctx, tourID)
		if err != nil {
			return nil, services.StoreError(err)
		}
		reviews, err := s.Reviews.ListByTour(ctx, tourID)
		if err != nil {
			return nil, services.StoreError(err)
		}

		mean, count := Aggregate(reviews)
		err = s.Tours.UpdateRatingIfVersion(ctx, tourID, tour.Version, mean, count)
		if err == nil {
			tour.Rating = mean
			tour.ReviewCount = count
			tour.Version++
			s.Catalog.Refresh(ctx, tour)
			return tour, nil
		}

		lastErr = services.StoreError(err)
		if !errors.Is(lastErr, services.ErrConflict) {
			return nil, lastErr
		}
		s.Logger.Debug("Rating update lost a version race, retrying",
			zap.String("tourId", tourID),
			zap.Int("attempt", attempt),
			zap.Int64("version", tour.Version),
		)
	}

	s.Logger.Warn("Rating update gave up after repeated conflicts",
		zap.String("tourId", tourID), zap.Int("attempts", attempts))
	return nil, fmt.Errorf("rating of tour %s not updated after %d attempts: %w", tourID, attempts, lastErr)
}

// Aggregate returns the arithmetic mean of the review ratings and their count.
// The mean is nil when there are no reviews.
func Aggregate(reviews []models.Review) (*float64, int) {
	if len(reviews) == 0 {
		return nil, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	mean := float64(sum) / float64(len(reviews))
	return &mean, len(reviews)
}

// compensate removes a review whose aggregate write failed. It runs detached
// from ctx, which may be the reason the write failed.
func (s *DefaultRatingService) compensate(ctx context.Context, review models.Review, cause error) {
	log := s.Logger.With(zap.String("tourId", review.TourID), zap.String("reviewId", review.ID))
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	// The review may already be counted by a concurrent writer's aggregate, so a
	// repair is queued even when the delete lands.
	reason := "aggregate update failed: " + cause.Error()
	if err := s.Reviews.Delete(ctx, review.ID); err != nil {
		log.Error("Failed to remove review after aggregate failure", zap.Error(err))
		reason = "orphaned review " + review.ID
	} else {
		log.Warn("Review removed after aggregate failure", zap.Error(cause))
	}

	if s.Reconciler == nil {
		return
	}
	if err := s.Reconciler.EnqueueReconcile(ctx, review.TourID, reason); err != nil {
		log.Error("Failed to enqueue rating reconcile", zap.Error(err))
	}
}

func (s *DefaultRatingService) wait(ctx context.Context, attempt int) error {
	if s.Backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Backoff * time.Duration(attempt-1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *DefaultRatingService) lockTour(ctx context.Context, tourID string) (context.Context, func(), error) {
	held, unlock, err := s.Locker.Lock(ctx, lock.Key("rating", tourID))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", services.ErrStoreUnavailable, err)
	}
	return held, unlock, nil
}

func (s *DefaultRatingService) publish(ctx context.Context, event models.Event) {
	event.OccurredAt = s.Now().UTC()
	if err := s.Events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.Logger.Warn("Failed to publish rating event", zap.String("type", event.Type), zap.Error(err))
	}
}

func ratingEvent(tourID string, mean *float64, count int) models.Event {
	attrs := map[string]string{"reviewCount": strconv.Itoa(count)}
	if mean != nil {
		attrs["rating"] = strconv.FormatFloat(*mean, 'f', -1, 64)
	}
	return models.Event{Type: models.EventRatingUpdated, TourID: tourID, Attributes: attrs}
}

func validateReview(tourID string, in models.ReviewInput) error {
	switch {
	case strings.TrimSpace(tourID) == "":
		return services.InvalidInput("tourId is required")
	case strings.TrimSpace(in.UserID) == "":
		return services.InvalidInput("userId is required")
	case in.Rating < models.MinRating || in.Rating > models.MaxRating:
		return services.InvalidInput("rating must be between %d and %d, got %d", models.MinRating, models.MaxRating, in.Rating)
	case strings.TrimSpace(in.Comment) == "":
		return services.InvalidInput("comment must not be blank")
	}
	return nil
}
