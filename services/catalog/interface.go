package catalog

import (
	"context"

	tourRepo "tourbook/database/repository/tour"
	"tourbook/models"

	"go.uber.org/zap"
)

// CatalogService is the read path for tours plus the administrative write path.
type CatalogService interface {
	GetTour(ctx context.Context, id string) (*models.Tour, error)
	ListTours(ctx context.Context) ([]models.Tour, error)
	ListToursByLocation(ctx context.Context, location string) ([]models.Tour, error)
	CreateTour(ctx context.Context, input models.TourInput) (*models.Tour, error)
	UpdateTour(ctx context.Context, id string, input models.TourInput) (*models.Tour, error)
	DeleteTour(ctx context.Context, id string) error
	// Refresh records a tour state the caller has just written, so cached
	// copies of older versions are replaced.
	Refresh(ctx context.Context, tour *models.Tour)
}

// DefaultCatalogService implements CatalogService.
type DefaultCatalogService struct {
	Repo   tourRepo.TourRepository
	Cache  TourCache
	Logger *zap.Logger
}

func NewCatalogService(repo tourRepo.TourRepository, cache TourCache, logger *zap.Logger) *DefaultCatalogService {
	if cache == nil {
		cache = NoopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultCatalogService{Repo: repo, Cache: cache, Logger: logger}
}
