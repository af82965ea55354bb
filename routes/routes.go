package routes

import (
	"time"

	"tourbook/handlers"
	"tourbook/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterTourRoutes registers the public catalog and the review endpoints.
func RegisterTourRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/tours")
	{
		api.GET("", hb.Tours.ListHandler)
		api.GET("/:id", hb.Tours.GetHandler)
		api.GET("/:id/reviews", hb.Tours.ListReviewsHandler)

		// Protected routes (Require Authentication)
		api.POST("/:id/reviews", middleware.UserAuthMiddleware(hb.Verifier), hb.Tours.SubmitReviewHandler)
	}
}

// RegisterBookingRoutes registers the reservation endpoints. All of them act
// on the authenticated user.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.UserAuthMiddleware(hb.Verifier))
		api.POST("", hb.Bookings.ReserveHandler)
		api.GET("", hb.Bookings.ListHandler)
		api.GET("/active", hb.Bookings.ActiveHandler)
		api.POST("/toggle", hb.Bookings.ToggleHandler)
		api.DELETE("/:id", hb.Bookings.CancelHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.AdminAuthMiddleware(hb.AdminToken))
		adminGroup.POST("/tours", hb.Admin.CreateTourHandler)
		adminGroup.PUT("/tours/:id", hb.Admin.UpdateTourHandler)
		adminGroup.DELETE("/tours/:id", hb.Admin.DeleteTourHandler)
		adminGroup.POST("/tours/:id/reconcile-rating", hb.Admin.ReconcileRatingHandler)
		adminGroup.POST("/bookings/:id/confirm", hb.Admin.ConfirmBookingHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.Check)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(hb.MaxRequestsPerMin))

	RegisterHealthRoute(r, hb)
	RegisterTourRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
