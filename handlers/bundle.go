package handlers

import (
	"tourbook/middleware"
)

// HandlerBundle groups the endpoint handlers and the auth settings routes need.
type HandlerBundle struct {
	Bookings *BookingHandler
	Tours    *TourHandler
	Admin    *AdminHandler
	Health   *HealthHandler

	Verifier          middleware.TokenVerifier
	AdminToken        string
	MaxRequestsPerMin int
}
