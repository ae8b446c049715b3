package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/synergy-api/internal/auth"
	"github.com/yukikurage/synergy-api/internal/constants"
	apierrors "github.com/yukikurage/synergy-api/internal/errors"
	"github.com/yukikurage/synergy-api/internal/logger"
	"github.com/yukikurage/synergy-api/internal/models"
	"go.uber.org/zap"
)

// UserProvisioner returns the user for a verified identity, creating it on
// first sight.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, identity auth.Identity) (*models.User, error)
}

// RequireAuth verifies the bearer credential and stores the caller's user ID
// in the context.
func RequireAuth(verifier auth.Verifier, users UserProvisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apierrors.Unauthorized(c, "Authorization token is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apierrors.Unauthorized(c, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		user, err := users.EnsureUser(c.Request.Context(), identity)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				apierrors.Unauthorized(c, "")
			} else {
				logger.Log.Error("Failed to provision user", zap.String("subject", identity.SubjectID), zap.Error(err))
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyIdentity, identity)
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
