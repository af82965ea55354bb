package handlers

import (
	"net/http"

	"tourbook/services/reservation"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	Reservations reservation.ReservationService
}

func NewBookingHandler(rs reservation.ReservationService) *BookingHandler {
	return &BookingHandler{Reservations: rs}
}

type tourRef struct {
	TourID string `json:"tourId" binding:"required"`
}

// ReserveHandler handles POST /api/bookings.
func (h *BookingHandler) ReserveHandler(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req tourRef
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.Reservations.Reserve(c.Request.Context(), req.TourID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// CancelHandler handles DELETE /api/bookings/:id.
func (h *BookingHandler) CancelHandler(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.Reservations.Cancel(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListHandler handles GET /api/bookings. With ?expand=tour each booking
// carries its tour.
func (h *BookingHandler) ListHandler(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if c.Query("expand") == "tour" {
		joined, err := h.Reservations.ListForUserWithTours(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, joined)
		return
	}

	bookings, err := h.Reservations.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// ActiveHandler handles GET /api/bookings/active?tourId=.
func (h *BookingHandler) ActiveHandler(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	booking, err := h.Reservations.FindActiveBooking(c.Request.Context(), c.Query("tourId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ToggleHandler handles POST /api/bookings/toggle.
func (h *BookingHandler) ToggleHandler(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req tourRef
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Reservations.Toggle(c.Request.Context(), req.TourID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
