package handlers

import (
	"cmp"
	"net/http"
	"slices"

	"tourbook/middleware"
	"tourbook/models"
	"tourbook/services"
	"tourbook/services/catalog"
	"tourbook/services/rating"

	"github.com/gin-gonic/gin"
)

type TourHandler struct {
	Catalog catalog.CatalogService
	Ratings rating.RatingService
}

func NewTourHandler(cat catalog.CatalogService, ratings rating.RatingService) *TourHandler {
	return &TourHandler{Catalog: cat, Ratings: ratings}
}

// ListHandler handles GET /api/tours. ?location= filters by exact location and
// ?sort=price or ?sort=-price orders by price.
func (h *TourHandler) ListHandler(c *gin.Context) {
	var (
		tours []models.Tour
		err   error
	)
	if loc, ok := c.GetQuery("location"); ok {
		tours, err = h.Catalog.ListToursByLocation(c.Request.Context(), loc)
	} else {
		tours, err = h.Catalog.ListTours(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}

	switch c.Query("sort") {
	case "":
	case "price":
		slices.SortStableFunc(tours, func(a, b models.Tour) int { return cmp.Compare(a.Price, b.Price) })
	case "-price":
		slices.SortStableFunc(tours, func(a, b models.Tour) int { return cmp.Compare(b.Price, a.Price) })
	default:
		respondError(c, services.InvalidInput("unsupported sort %q", c.Query("sort")))
		return
	}
	c.JSON(http.StatusOK, tours)
}

// GetHandler handles GET /api/tours/:id.
func (h *TourHandler) GetHandler(c *gin.Context) {
	tour, err := h.Catalog.GetTour(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

// ListReviewsHandler handles GET /api/tours/:id/reviews.
func (h *TourHandler) ListReviewsHandler(c *gin.Context) {
	reviews, err := h.Ratings.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// SubmitReviewHandler handles POST /api/tours/:id/reviews. The reviewer is the
// authenticated caller; the display name defaults to the token's name.
func (h *TourHandler) SubmitReviewHandler(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var input models.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	input.UserID = userID
	if input.UserName == "" {
		input.UserName = c.GetString(middleware.ContextUserName)
	}

	review, err := h.Ratings.SubmitReview(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}
