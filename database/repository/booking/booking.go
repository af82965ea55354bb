package bookingRepo

import (
	"context"
	"fmt"

	"tourbook/database/docstore"
	"tourbook/database/repository"
	"tourbook/models"
)

type docBookingRepo struct {
	store docstore.Store
}

// NewBookingRepo returns a BookingRepository backed by the given document store.
func NewBookingRepo(store docstore.Store) BookingRepository {
	return &docBookingRepo{store: store}
}

func (r *docBookingRepo) Create(ctx context.Context, booking models.Booking) (string, error) {
	doc := docstore.Document{
		"tourId": booking.TourID,
		"userId": booking.UserID,
		"date":   booking.Date,
		"status": string(booking.Status),
	}
	id, err := r.store.Insert(ctx, repository.BookingsCollection, doc)
	if err != nil {
		return "", fmt.Errorf("error creating booking: %w", err)
	}
	return id, nil
}

func (r *docBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	doc, err := r.store.Get(ctx, repository.BookingsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching booking with id %s: %w", id, err)
	}
	var booking models.Booking
	if err := repository.Decode(doc, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *docBookingRepo) FindByTourAndUser(ctx context.Context, tourID, userID string) ([]models.Booking, error) {
	return r.query(ctx, docstore.Filter{"tourId": tourID, "userId": userID})
}

func (r *docBookingRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return r.query(ctx, docstore.Filter{"userId": userID})
}

func (r *docBookingRepo) query(ctx context.Context, filter docstore.Filter) ([]models.Booking, error) {
	docs, err := r.store.Query(ctx, repository.BookingsCollection, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying bookings: %w", err)
	}
	bookings := make([]models.Booking, 0, len(docs))
	for _, doc := range docs {
		var b models.Booking
		if err := repository.Decode(doc, &b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r *docBookingRepo) UpdateStatusIfVersion(ctx context.Context, id string, version int64, status models.BookingStatus) error {
	fields := docstore.Document{"status": string(status)}
	if err := r.store.UpdateIfVersion(ctx, repository.BookingsCollection, id, version, fields); err != nil {
		return fmt.Errorf("error updating booking %s: %w", id, err)
	}
	return nil
}

// Delete removes a booking record; a cancelled booking is not archived.
func (r *docBookingRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, repository.BookingsCollection, id); err != nil {
		return fmt.Errorf("error deleting booking %s: %w", id, err)
	}
	return nil
}
