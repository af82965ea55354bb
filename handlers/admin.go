package handlers

import (
	"net/http"

	"tourbook/models"
	"tourbook/services/catalog"
	"tourbook/services/rating"
	"tourbook/services/reservation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the token-guarded administrative endpoints.
type AdminHandler struct {
	Catalog      catalog.CatalogService
	Reservations reservation.ReservationService
	Ratings      rating.RatingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cat catalog.CatalogService, rs reservation.ReservationService, ratings rating.RatingService) *AdminHandler {
	return &AdminHandler{Catalog: cat, Reservations: rs, Ratings: ratings}
}

func (h *AdminHandler) CreateTourHandler(c *gin.Context) {
	var input models.TourInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tour, err := h.Catalog.CreateTour(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tour)
}

func (h *AdminHandler) UpdateTourHandler(c *gin.Context) {
	var input models.TourInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tour, err := h.Catalog.UpdateTour(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

func (h *AdminHandler) DeleteTourHandler(c *gin.Context) {
	if err := h.Catalog.DeleteTour(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ConfirmBookingHandler handles POST /api/admin/bookings/:id/confirm.
func (h *AdminHandler) ConfirmBookingHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.Reservations.Confirm(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Booking confirmed by admin", zap.String("bookingId", id))
	c.JSON(http.StatusOK, gin.H{"id": id, "status": models.BookingConfirmed})
}

// ReconcileRatingHandler recomputes a tour's rating from its reviews.
func (h *AdminHandler) ReconcileRatingHandler(c *gin.Context) {
	tour, err := h.Ratings.Recompute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}
