package reviewRepo

import (
	"context"
	"fmt"

	"tourbook/database/docstore"
	"tourbook/database/repository"
	"tourbook/models"
)

type docReviewRepo struct {
	store docstore.Store
}

func NewReviewRepo(store docstore.Store) ReviewRepository {
	return &docReviewRepo{store: store}
}

func (r *docReviewRepo) Create(ctx context.Context, review models.Review) (string, error) {
	doc := docstore.Document{
		"tourId":   review.TourID,
		"userId":   review.UserID,
		"userName": review.UserName,
		"rating":   review.Rating,
		"comment":  review.Comment,
		"date":     review.Date,
	}
	id, err := r.store.Insert(ctx, repository.ReviewsCollection, doc)
	if err != nil {
		return "", fmt.Errorf("error creating review: %w", err)
	}
	return id, nil
}

func (r *docReviewRepo) ListByTour(ctx context.Context, tourID string) ([]models.Review, error) {
	docs, err := r.store.Query(ctx, repository.ReviewsCollection, docstore.Filter{"tourId": tourID})
	if err != nil {
		return nil, fmt.Errorf("error querying reviews for tour %s: %w", tourID, err)
	}
	reviews := make([]models.Review, 0, len(docs))
	for _, doc := range docs {
		var rv models.Review
		if err := repository.Decode(doc, &rv); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

// Delete exists only to undo an insert whose aggregate update could not land.
func (r *docReviewRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, repository.ReviewsCollection, id); err != nil {
		return fmt.Errorf("error deleting review %s: %w", id, err)
	}
	return nil
}
