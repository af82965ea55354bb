package handlers

import (
	"net/http"

	"tourbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

type HealthHandler struct {
	Store utils.Pinger
	Redis map[string]*redis.Client
}

// Check handles GET /health with a live check of every backend.
func (h *HealthHandler) Check(c *gin.Context) {
	status := utils.CheckHealth(c.Request.Context(), h.Store, h.Redis)
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
