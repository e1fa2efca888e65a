package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/internal/auth"
	"github.com/pollsapp/backend/internal/authz"
	"github.com/pollsapp/backend/pkg/response"
)

const (
	// ContextUserID is the key for the authenticated user ID in gin context.
	ContextUserID = "user_id"
	// ContextRequester is the key for the authz.Requester in gin context.
	ContextRequester = "requester"
)

// PermissionSource looks up a user's permission grants.
type PermissionSource interface {
	Permissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Identity resolves the caller. A request without an Authorization header is
// anonymous; a malformed or invalid bearer token is rejected with 401.
func Identity(jwtService *auth.JWTService, perms PermissionSource, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(ContextRequester, authz.Anonymous())
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		granted, err := perms.Permissions(c.Request.Context(), claims.UserID)
		if err != nil {
			logger.Error("load permissions", zap.String("user_id", claims.UserID.String()), zap.Error(err))
			response.Internal(c, "internal error")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRequester, authz.User(claims.UserID, granted...))
		c.Next()
	}
}

// CurrentRequester returns the caller resolved by Identity, anonymous if none.
func CurrentRequester(c *gin.Context) authz.Requester {
	if v, ok := c.Get(ContextRequester); ok {
		if r, ok := v.(authz.Requester); ok {
			return r
		}
	}
	return authz.Anonymous()
}
