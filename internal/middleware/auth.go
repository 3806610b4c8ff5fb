package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"healthcare-admin-server/internal/config"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/scheduling"
	"healthcare-admin-server/internal/utils"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// AuthMiddleware verifies the bearer access token and stores the caller's
// id and role on the context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			utils.Abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := utils.ValidateToken(strings.TrimSpace(token), cfg.JWTSecret, utils.AccessToken)
		if err != nil {
			utils.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(userRoleKey, claims.Role)

		c.Next()
	}
}

// RoleAuthMiddleware restricts a route group to the given roles. It must run
// after AuthMiddleware. Appointment routes do not use it; their rules live in
// scheduling.Authorize.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.Abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.Abort(c, http.StatusForbidden, "You do not have permission to access this resource.")
	}
}

// GetUserIDFromContext returns the authenticated user's id.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}

// GetUserRoleFromContext returns the authenticated user's role.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	value, exists := c.Get(userRoleKey)
	if !exists {
		return "", false
	}
	role, ok := value.(models.Role)
	return role, ok
}

// CurrentIdentity builds the scheduling identity of the caller.
func CurrentIdentity(c *gin.Context) (scheduling.Identity, bool) {
	id, ok := GetUserIDFromContext(c)
	if !ok {
		return scheduling.Identity{}, false
	}
	role, ok := GetUserRoleFromContext(c)
	if !ok {
		return scheduling.Identity{}, false
	}
	return scheduling.Identity{SubjectID: id, Role: role}, true
}

// SetIdentity stores an identity on the context the way AuthMiddleware does.
func SetIdentity(c *gin.Context, id string, role models.Role) {
	c.Set(userIDKey, id)
	c.Set(userRoleKey, role)
}
