package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tourbook/utils"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by UserAuthMiddleware.
const (
	ContextUserID   = "userID"
	ContextUserName = "userName"
)

// TokenVerifier resolves a bearer token to the calling user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (utils.Identity, error)
}

// JWTVerifier accepts HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Verify(_ context.Context, token string) (utils.Identity, error) {
	return utils.ExtractIdentity(v.Secret, token)
}

// FirebaseVerifier accepts Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	Client *auth.Client
}

func (v FirebaseVerifier) Verify(ctx context.Context, token string) (utils.Identity, error) {
	tok, err := v.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return utils.Identity{}, err
	}
	if tok.UID == "" {
		return utils.Identity{}, errors.New("token has no uid")
	}
	id := utils.Identity{UserID: tok.UID}
	if name, ok := tok.Claims["name"].(string); ok {
		id.Name = name
	} else if email, ok := tok.Claims["email"].(string); ok {
		id.Name = email
	}
	return id, nil
}

// UserAuthMiddleware requires a valid bearer token and stores the caller's
// identity in the context.
func UserAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
			return
		}

		id, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			zap.L().Debug("Token rejected", zap.String("ip", getClientIP(c)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token"})
			return
		}

		c.Set(ContextUserID, id.UserID)
		c.Set(ContextUserName, id.Name)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}
