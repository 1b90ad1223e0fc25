package middleware

import (
	"net/http"
	"strings"

	"bloomify-insights/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func bearerClaims(c *gin.Context, secret []byte) (subject, role string, ok bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
		return "", "", false
	}
	subject, role, err := utils.ExtractClaims(secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		zap.L().Debug("Rejected dashboard token", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return "", "", false
	}
	c.Set("subjectID", subject)
	c.Set("role", role)
	return subject, role, true
}

// JWTAuthProviderMiddleware lets a provider read only their own dashboards;
// admins may read any. An empty secret disables the check.
func JWTAuthProviderMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		subject, role, ok := bearerClaims(c, key)
		if !ok {
			return
		}
		if role != utils.RoleAdmin && subject != c.Param("id") {
			zap.L().Warn("Provider dashboard access denied", zap.String("subjectID", subject), zap.String("providerID", c.Param("id")))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Set("providerID", c.Param("id"))
		c.Next()
	}
}

// JWTAuthAdminMiddleware restricts marketplace-wide views to admins.
func JWTAuthAdminMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		_, role, ok := bearerClaims(c, key)
		if !ok {
			return
		}
		if role != utils.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
