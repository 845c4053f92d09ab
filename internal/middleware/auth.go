// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradebridge/marketplace-backend/internal/models"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

const sessionContextKey = "session"

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization header",
			})
			c.Abort()
			return
		}

		claims, err := utils.ValidateSessionToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token subject",
			})
			c.Abort()
			return
		}

		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token company",
			})
			c.Abort()
			return
		}

		c.Set(sessionContextKey, &models.Session{
			UserID:      userID,
			CompanyID:   companyID,
			Role:        claims.Role,
			Permissions: claims.Permissions,
		})
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil || !session.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "admin access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// PermissionRequired gates buyer-only (network_buy) and seller-only
// (network_sell) surfaces. Admins pass unconditionally.
func PermissionRequired(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			c.Abort()
			return
		}

		if !session.IsAdmin() && !session.HasPermission(permission) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "missing permission: " + permission,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetSession(c *gin.Context) *models.Session {
	if value, exists := c.Get(sessionContextKey); exists {
		if session, ok := value.(*models.Session); ok {
			return session
		}
	}
	return nil
}
