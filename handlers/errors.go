package handlers

import (
	"errors"
	"net/http"

	"tourbook/middleware"
	"tourbook/services"
	"tourbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorKind struct {
	target error
	status int
	code   string
}

var errorKinds = []errorKind{
	{services.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{services.ErrAlreadyBooked, http.StatusConflict, "already_booked"},
	{services.ErrConflict, http.StatusConflict, "conflict"},
	{services.ErrForbidden, http.StatusForbidden, "forbidden"},
	{services.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{services.ErrCorruptData, http.StatusInternalServerError, "corrupt_data"},
}

// respondError maps a service error onto an HTTP status and a stable code.
func respondError(c *gin.Context, err error) {
	logger := getLogger(c)
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			if k.status >= http.StatusInternalServerError {
				logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
			} else {
				logger.Debug("Request rejected", zap.String("path", c.FullPath()), zap.String("code", k.code), zap.Error(err))
			}
			c.JSON(k.status, utils.ErrorResponse{
				Message:   err.Error(),
				Code:      k.code,
				Retryable: services.IsRetryable(err),
			})
			return
		}
	}

	logger.Error("Unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, utils.ErrorResponse{Message: "Internal Server Error"})
}

func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
}

// callerID returns the authenticated user id set by the auth middleware.
func callerID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.ContextUserID)
	if id == "" {
		c.JSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing user identity"})
		return "", false
	}
	return id, true
}
