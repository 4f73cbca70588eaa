package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

// requireAuth resolves the bearer credential (Authorization header or
// token cookie) to a caller identity. Every downstream ownership check
// uses the user id set here and nothing else from the request.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
		if tokenString == "" {
			tokenString, _ = c.Cookie("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"status": "error", "message": "Unauthorized"})
			return
		}

		claims, err := h.auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"status": "error", "message": "Unauthorized"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// requireAdmin gates admin-only routes; must run after requireAuth
func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != "admin" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"status": "error", "message": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// userID returns the authenticated caller's id set by requireAuth
func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
