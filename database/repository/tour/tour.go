package tourRepo

import (
	"context"
	"fmt"

	"tourbook/database/docstore"
	"tourbook/database/repository"
	"tourbook/models"
)

type docTourRepo struct {
	store docstore.Store
}

// NewTourRepo returns a TourRepository backed by the given document store.
func NewTourRepo(store docstore.Store) TourRepository {
	return &docTourRepo{store: store}
}

func (r *docTourRepo) GetByID(ctx context.Context, id string) (*models.Tour, error) {
	doc, err := r.store.Get(ctx, repository.ToursCollection, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching tour with id %s: %w", id, err)
	}
	var tour models.Tour
	if err := repository.Decode(doc, &tour); err != nil {
		return nil, err
	}
	return &tour, nil
}

func (r *docTourRepo) List(ctx context.Context) ([]models.Tour, error) {
	return r.query(ctx, docstore.Filter{})
}

func (r *docTourRepo) ListByLocation(ctx context.Context, location string) ([]models.Tour, error) {
	return r.query(ctx, docstore.Filter{"location": location})
}

func (r *docTourRepo) query(ctx context.Context, filter docstore.Filter) ([]models.Tour, error) {
	docs, err := r.store.Query(ctx, repository.ToursCollection, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying tours: %w", err)
	}
	tours := make([]models.Tour, 0, len(docs))
	for _, doc := range docs {
		var tour models.Tour
		if err := repository.Decode(doc, &tour); err != nil {
			return nil, err
		}
		tours = append(tours, tour)
	}
	return tours, nil
}

func (r *docTourRepo) Create(ctx context.Context, input models.TourInput) (string, error) {
	doc := inputDocument(input)
	doc["reviewCount"] = 0
	id, err := r.store.Insert(ctx, repository.ToursCollection, doc)
	if err != nil {
		return "", fmt.Errorf("error creating tour: %w", err)
	}
	return id, nil
}

func (r *docTourRepo) Update(ctx context.Context, id string, input models.TourInput) error {
	if err := r.store.Update(ctx, repository.ToursCollection, id, inputDocument(input)); err != nil {
		return fmt.Errorf("error updating tour %s: %w", id, err)
	}
	return nil
}

func (r *docTourRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, repository.ToursCollection, id); err != nil {
		return fmt.Errorf("error deleting tour %s: %w", id, err)
	}
	return nil
}

func (r *docTourRepo) UpdateRatingIfVersion(ctx context.Context, id string, version int64, rating *float64, reviewCount int) error {
	fields := docstore.Document{"reviewCount": reviewCount, "rating": nil}
	if rating != nil {
		fields["rating"] = *rating
	}
	if err := r.store.UpdateIfVersion(ctx, repository.ToursCollection, id, version, fields); err != nil {
		return fmt.Errorf("error updating rating of tour %s: %w", id, err)
	}
	return nil
}

// inputDocument lists only client-settable fields; rating, reviewCount and
// version never come from a caller.
func inputDocument(in models.TourInput) docstore.Document {
	return docstore.Document{
		"title":       in.Title,
		"description": in.Description,
		"price":       in.Price,
		"duration":    in.Duration,
		"location":    in.Location,
		"image":       in.Image,
		"coordinates": map[string]interface{}{
			"lat": in.Coordinates.Lat,
			"lng": in.Coordinates.Lng,
		},
	}
}
