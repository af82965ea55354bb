package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourbook/database/docstore"
	bookingRepo "tourbook/database/repository/booking"
	reviewRepo "tourbook/database/repository/review"
	tourRepo "tourbook/database/repository/tour"
	"tourbook/handlers"
	"tourbook/middleware"
	"tourbook/models"
	"tourbook/services/catalog"
	"tourbook/services/events/eventstest"
	"tourbook/services/lock"
	"tourbook/services/rating"
	"tourbook/services/reservation"
	"tourbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("route-test-secret")

const adminToken = "admin-secret"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := docstore.NewMemoryStore()
	logger := zap.NewNop()
	locker := lock.NewMemoryLocker()
	publisher := eventstest.NewRecorder(64)

	tours := tourRepo.NewTourRepo(store)
	cat := catalog.NewCatalogService(tours, nil, logger)
	rs := reservation.NewReservationService(bookingRepo.NewBookingRepo(store), cat, locker, publisher, logger)
	rs.ConfirmationEnabled = true
	ratings := rating.NewRatingService(tours, reviewRepo.NewReviewRepo(store), cat, locker, publisher, logger)

	hb := &handlers.HandlerBundle{
		Bookings:          handlers.NewBookingHandler(rs),
		Tours:             handlers.NewTourHandler(cat, ratings),
		Admin:             handlers.NewAdminHandler(cat, rs, ratings),
		Health:            &handlers.HealthHandler{Store: store},
		Verifier:          middleware.JWTVerifier{Secret: secret},
		AdminToken:        adminToken,
		MaxRequestsPerMin: 1000,
	}

	r := gin.New()
	r.Use(utils.ErrorHandler())
	RegisterRoutes(r, hb)
	return r
}

func call(t *testing.T, r *gin.Engine, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func userToken(t *testing.T, id string) string {
	t.Helper()
	tok, err := utils.GenerateToken(secret, id, "Traveller "+id, time.Hour)
	require.NoError(t, err)
	return tok
}

func createTour(t *testing.T, r *gin.Engine, title, location string, price float64) models.Tour {
	t.Helper()
	w := call(t, r, http.MethodPost, "/api/admin/tours", adminToken, models.TourInput{
		Title: title, Location: location, Price: price,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tour models.Tour
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tour))
	return tour
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestBookingFlow(t *testing.T) {
	r := newRouter(t)
	tour := createTour(t, r, "Fjord cruise", "Bergen", 120)
	u1 := userToken(t, "u1")

	w := call(t, r, http.MethodPost, "/api/bookings", u1, gin.H{"tourId": tour.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = call(t, r, http.MethodPost, "/api/bookings", u1, gin.H{"tourId": tour.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_booked", errorCode(t, w))

	w = call(t, r, http.MethodGet, "/api/bookings?expand=tour", u1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var joined []models.BookingWithTour
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	require.Len(t, joined, 1)
	require.NotNil(t, joined[0].Tour)
	assert.Equal(t, "Fjord cruise", joined[0].Tour.Title)

	// Someone else cannot cancel it.
	w = call(t, r, http.MethodDelete, "/api/bookings/"+created.ID, userToken(t, "u2"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, r, http.MethodPost, "/api/admin/bookings/"+created.ID+"/confirm", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodDelete, "/api/bookings/"+created.ID, u1, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(t, r, http.MethodGet, "/api/bookings/active?tourId="+tour.ID, u1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"booking":null}`, w.Body.String())

	w = call(t, r, http.MethodPost, "/api/bookings/toggle", u1, gin.H{"tourId": tour.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"reserved"`)
}

func TestBookingRoutesRequireAuth(t *testing.T) {
	r := newRouter(t)
	w := call(t, r, http.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/api/admin/tours", "not-admin", models.TourInput{Title: "x", Location: "y"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewFlow(t *testing.T) {
	r := newRouter(t)
	tour := createTour(t, r, "Tatra ridge", "Zakopane", 60)
	path := "/api/tours/" + tour.ID + "/reviews"

	w := call(t, r, http.MethodPost, path, userToken(t, "u1"), gin.H{"rating": 5, "comment": "Stunning views"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rv models.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rv))
	assert.Equal(t, "u1", rv.UserID)
	assert.Equal(t, "Traveller u1", rv.UserName)

	w = call(t, r, http.MethodPost, path, userToken(t, "u2"), gin.H{"rating": 2, "comment": "Too steep", "userName": "Bo"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = call(t, r, http.MethodPost, path, userToken(t, "u3"), gin.H{"rating": 6, "comment": "?"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorCode(t, w))

	w = call(t, r, http.MethodGet, "/api/tours/"+tour.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Tour
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Rating)
	assert.InDelta(t, 3.5, *got.Rating, 1e-9)
	assert.Equal(t, 2, got.ReviewCount)

	w = call(t, r, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reviews []models.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reviews))
	assert.Len(t, reviews, 2)

	w = call(t, r, http.MethodPost, "/api/admin/tours/"+tour.ID+"/reconcile-rating", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTourListing(t *testing.T) {
	r := newRouter(t)
	createTour(t, r, "B", "Krakow", 30)
	createTour(t, r, "A", "Krakow", 10)
	createTour(t, r, "C", "Gdansk", 20)

	w := call(t, r, http.MethodGet, "/api/tours?location=Krakow&sort=price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tours []models.Tour
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tours))
	require.Len(t, tours, 2)
	assert.Equal(t, "A", tours[0].Title)
	assert.Equal(t, "B", tours[1].Title)

	w = call(t, r, http.MethodGet, "/api/tours?sort=-price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tours))
	require.Len(t, tours, 3)
	assert.Equal(t, "B", tours[0].Title)

	w = call(t, r, http.MethodGet, "/api/tours?sort=rating", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodGet, "/api/tours/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	w := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":true`)
}
