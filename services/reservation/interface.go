package reservation

import (
	"context"
	"time"

	bookingRepo "tourbook/database/repository/booking"
	"tourbook/models"
	"tourbook/services/catalog"
	"tourbook/services/events"
	"tourbook/services/lock"

	"go.uber.org/zap"
)

// ReservationService enforces one active booking per (tour, user) and owns the
// booking lifecycle.
type ReservationService interface {
	Reserve(ctx context.Context, tourID, userID string) (string, error)
	Cancel(ctx context.Context, bookingID, userID string) error
	ListForUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListForUserWithTours(ctx context.Context, userID string) ([]models.BookingWithTour, error)
	FindActiveBooking(ctx context.Context, tourID, userID string) (*models.Booking, error)
	Toggle(ctx context.Context, tourID, userID string) (*models.ToggleResult, error)
	Confirm(ctx context.Context, bookingID string) error
}

// DefaultReservationService implements ReservationService.
type DefaultReservationService struct {
	Bookings bookingRepo.BookingRepository
	Catalog  catalog.CatalogService
	Locker   lock.Locker
	Events   events.Publisher
	Logger   *zap.Logger

	// ConfirmationEnabled gates the pending -> confirmed transition.
	ConfirmationEnabled bool

	// MaxAttempts bounds retries of version-conditioned status writes.
	MaxAttempts int
	Now         func() time.Time
}

func NewReservationService(bookings bookingRepo.BookingRepository, cat catalog.CatalogService, locker lock.Locker, publisher events.Publisher, logger *zap.Logger) *DefaultReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &DefaultReservationService{
		Bookings:    bookings,
		Catalog:     cat,
		Locker:      locker,
		Events:      publisher,
		Logger:      logger,
		MaxAttempts: 3,
		Now:         time.Now,
	}
}
