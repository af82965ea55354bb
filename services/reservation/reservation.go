package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourbook/models"
	"tourbook/services"
	"tourbook/services/lock"

	"go.uber.org/zap"
)

// Reserve creates a pending booking unless the user already holds an active
// one for the tour. The existence check and the insert run under a per-pair
// lock, which closes the check-then-insert window. The event is published
// after the lock is released.
func (s *DefaultReservationService) Reserve(ctx context.Context, tourID, userID string) (string, error) {
	if err := requireIDs(map[string]string{"tourId": tourID, "userId": userID}); err != nil {
		return "", err
	}

	held, unlock, err := s.lockPair(ctx, tourID, userID)
	if err != nil {
		return "", err
	}
	id, err := s.reserveLocked(held, tourID, userID)
	unlock()
	if err != nil {
		return "", err
	}

	s.publish(ctx, models.EventBookingCreated, tourID, userID, id)
	return id, nil
}

// reserveLocked expects held to be the context returned with the pair lock.
func (s *DefaultReservationService) reserveLocked(held context.Context, tourID, userID string) (string, error) {
	if _, err := s.Catalog.GetTour(held, tourID); err != nil {
		return "", err
	}

	active, err := s.findActive(held, tourID, userID)
	if err != nil {
		return "", err
	}
	if active != nil {
		return "", fmt.Errorf("%w: booking %s is %s", services.ErrAlreadyBooked, active.ID, active.Status)
	}

	// The reads above may have outlasted the lock.
	if err := lock.Held(held); err != nil {
		s.Logger.Warn("Booking lock lost before insert", zap.String("tourId", tourID), zap.String("userId", userID), zap.Error(err))
		return "", fmt.Errorf("%w: %w", services.ErrStoreUnavailable, err)
	}

	booking := models.Booking{
		TourID: tourID,
		UserID: userID,
		Date:   s.Now().UTC().Format(time.RFC3339Nano),
		Status: models.BookingPending,
	}
	id, err := s.Bookings.Create(held, booking)
	if err != nil {
		return "", services.StoreError(err)
	}

	s.Logger.Info("Booking created", zap.String("bookingId", id), zap.String("tourId", tourID), zap.String("userId", userID))
	return id, nil
}

// Cancel deletes the booking. Only the user who owns the booking may cancel it.
func (s *DefaultReservationService) Cancel(ctx context.Context, bookingID, userID string) error {
	if err := requireIDs(map[string]string{"bookingId": bookingID, "userId": userID}); err != nil {
		return err
	}

	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return services.StoreError(err)
	}
	if booking.UserID != userID {
		s.Logger.Warn("Cancellation refused: caller does not own booking",
			zap.String("bookingId", bookingID), zap.String("userId", userID))
		return fmt.Errorf("%w: booking %s belongs to another user", services.ErrForbidden, bookingID)
	}

	held, unlock, err := s.lockPair(ctx, booking.TourID, booking.UserID)
	if err != nil {
		return err
	}
	err = s.cancelLocked(held, booking)
	unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, models.EventBookingCancelled, booking.TourID, booking.UserID, booking.ID)
	return nil
}

func (s *DefaultReservationService) cancelLocked(held context.Context, booking *models.Booking) error {
	if err := s.Bookings.Delete(held, booking.ID); err != nil {
		return services.StoreError(err)
	}
	s.Logger.Info("Booking cancelled", zap.String("bookingId", booking.ID), zap.String("tourId", booking.TourID))
	return nil
}

func (s *DefaultReservationService) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	if err := requireIDs(map[string]string{"userId": userID}); err != nil {
		return nil, err
	}
	bookings, err := s.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, services.StoreError(err)
	}
	return bookings, nil
}

// ListForUserWithTours joins each booking with its tour. A booking whose tour
// no longer exists is returned with a nil Tour.
func (s *DefaultReservationService) ListForUserWithTours(ctx context.Context, userID string) ([]models.BookingWithTour, error) {
	bookings, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.BookingWithTour, 0, len(bookings))
	for _, b := range bookings {
		item := models.BookingWithTour{Booking: b}
		tour, err := s.Catalog.GetTour(ctx, b.TourID)
		switch {
		case err == nil:
			item.Tour = tour
		case errors.Is(err, services.ErrNotFound):
		default:
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *DefaultReservationService) FindActiveBooking(ctx context.Context, tourID, userID string) (*models.Booking, error) {
	if err := requireIDs(map[string]string{"tourId": tourID, "userId": userID}); err != nil {
		return nil, err
	}
	return s.findActive(ctx, tourID, userID)
}

func (s *DefaultReservationService) findActive(ctx context.Context, tourID, userID string) (*models.Booking, error) {
	bookings, err := s.Bookings.FindByTourAndUser(ctx, tourID, userID)
	if err != nil {
		return nil, services.StoreError(err)
	}
	for i := range bookings {
		if bookings[i].Status.Active() {
			return &bookings[i], nil
		}
	}
	return nil, nil
}

// Toggle cancels the user's active booking for the tour if there is one and
// reserves it otherwise.
func (s *DefaultReservationService) Toggle(ctx context.Context, tourID, userID string) (*models.ToggleResult, error) {
	if err := requireIDs(map[string]string{"tourId": tourID, "userId": userID}); err != nil {
		return nil, err
	}

	held, unlock, err := s.lockPair(ctx, tourID, userID)
	if err != nil {
		return nil, err
	}
	res, err := s.toggleLocked(held, tourID, userID)
	unlock()
	if err != nil {
		return nil, err
	}

	eventType := models.EventBookingCreated
	if res.Action == "cancelled" {
		eventType = models.EventBookingCancelled
	}
	s.publish(ctx, eventType, tourID, userID, res.BookingID)
	return res, nil
}

func (s *DefaultReservationService) toggleLocked(held context.Context, tourID, userID string) (*models.ToggleResult, error) {
	active, err := s.findActive(held, tourID, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if err := s.cancelLocked(held, active); err != nil {
			return nil, err
		}
		return &models.ToggleResult{Action: "cancelled", BookingID: active.ID}, nil
	}

	id, err := s.reserveLocked(held, tourID, userID)
	if err != nil {
		return nil, err
	}
	return &models.ToggleResult{Action: "reserved", BookingID: id}, nil
}

// Confirm moves a pending booking to confirmed. The write is conditioned on
// the version read, so it cannot land on a booking that changed meanwhile.
func (s *DefaultReservationService) Confirm(ctx context.Context, bookingID string) error {
	if !s.ConfirmationEnabled {
		return fmt.Errorf("%w: booking confirmation is disabled", services.ErrForbidden)
	}
	if err := requireIDs(map[string]string{"bookingId": bookingID}); err != nil {
		return err
	}

	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		booking, err := s.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return services.StoreError(err)
		}
		switch booking.Status {
		case models.BookingConfirmed:
			return nil
		case models.BookingPending:
		default:
			return services.InvalidInput("booking %s cannot be confirmed from status %s", bookingID, booking.Status)
		}

		err = s.Bookings.UpdateStatusIfVersion(ctx, bookingID, booking.Version, models.BookingConfirmed)
		if err == nil {
			s.Logger.Info("Booking confirmed", zap.String("bookingId", bookingID))
			s.publish(ctx, models.EventBookingConfirmed, booking.TourID, booking.UserID, bookingID)
			return nil
		}
		lastErr = services.StoreError(err)
		if !errors.Is(lastErr, services.ErrConflict) {
			return lastErr
		}
	}
	return lastErr
}

func (s *DefaultReservationService) lockPair(ctx context.Context, tourID, userID string) (context.Context, func(), error) {
	held, unlock, err := s.Locker.Lock(ctx, lock.Key("booking", tourID, userID))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", services.ErrStoreUnavailable, err)
	}
	return held, unlock, nil
}

func (s *DefaultReservationService) publish(ctx context.Context, eventType, tourID, userID, entityID string) {
	event := models.Event{
		Type:       eventType,
		TourID:     tourID,
		UserID:     userID,
		EntityID:   entityID,
		OccurredAt: s.Now().UTC(),
	}
	// Detached: the write has already committed.
	if err := s.Events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.Logger.Warn("Failed to publish booking event", zap.String("type", eventType), zap.Error(err))
	}
}

func requireIDs(ids map[string]string) error {
	for name, v := range ids {
		if strings.TrimSpace(v) == "" {
			return services.InvalidInput("%s is required", name)
		}
	}
	return nil
}
