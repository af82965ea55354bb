package catalog

import (
	"context"
	"math"
	"strings"

	"tourbook/models"
	"tourbook/services"

	"go.uber.org/zap"
)

func (s *DefaultCatalogService) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.InvalidInput("tour id is required")
	}
	if cached, ok := s.Cache.Get(ctx, id); ok {
		return cached, nil
	}

	tour, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, services.StoreError(err)
	}
	// Set keeps a newer entry written while this read was in flight.
	s.Cache.Set(ctx, tour)
	return tour, nil
}

func (s *DefaultCatalogService) ListTours(ctx context.Context) ([]models.Tour, error) {
	tours, err := s.Repo.List(ctx)
	if err != nil {
		return nil, services.StoreError(err)
	}
	return tours, nil
}

func (s *DefaultCatalogService) ListToursByLocation(ctx context.Context, location string) ([]models.Tour, error) {
	if location == "" {
		return nil, services.InvalidInput("location is required")
	}
	tours, err := s.Repo.ListByLocation(ctx, location)
	if err != nil {
		return nil, services.StoreError(err)
	}
	return tours, nil
}

func (s *DefaultCatalogService) CreateTour(ctx context.Context, input models.TourInput) (*models.Tour, error) {
	if err := validateTourInput(input); err != nil {
		return nil, err
	}
	id, err := s.Repo.Create(ctx, input)
	if err != nil {
		return nil, services.StoreError(err)
	}
	s.Logger.Info("Tour created", zap.String("tourId", id), zap.String("title", input.Title))
	return s.GetTour(ctx, id)
}

func (s *DefaultCatalogService) UpdateTour(ctx context.Context, id string, input models.TourInput) (*models.Tour, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.InvalidInput("tour id is required")
	}
	if err := validateTourInput(input); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, id, input); err != nil {
		return nil, services.StoreError(err)
	}
	tour, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, services.StoreError(err)
	}
	s.Refresh(ctx, tour)
	s.Logger.Info("Tour updated", zap.String("tourId", id), zap.Int64("version", tour.Version))
	return tour, nil
}

// DeleteTour removes the tour document. Bookings and reviews that reference it
// are left in place; references are not enforced by the store.
func (s *DefaultCatalogService) DeleteTour(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return services.InvalidInput("tour id is required")
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return services.StoreError(err)
	}
	s.Cache.Invalidate(ctx, id)
	s.Logger.Info("Tour deleted", zap.String("tourId", id))
	return nil
}

func (s *DefaultCatalogService) Refresh(ctx context.Context, tour *models.Tour) {
	s.Cache.Set(ctx, tour)
}

func validateTourInput(in models.TourInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return services.InvalidInput("title is required")
	case strings.TrimSpace(in.Location) == "":
		return services.InvalidInput("location is required")
	case math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price < 0:
		return services.InvalidInput("price must be a non-negative number")
	case !in.Coordinates.Valid():
		return services.InvalidInput("coordinates out of range: lat %v, lng %v", in.Coordinates.Lat, in.Coordinates.Lng)
	}
	return nil
}
