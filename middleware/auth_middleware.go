package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"surveypulse/api/models"
	"surveypulse/api/utils"
)

// ServiceUserID identifies callers authenticated with the shared API key.
const ServiceUserID = "service"

// AuthRequired accepts a JWT from the jwt_token cookie or an Authorization
// Bearer header. A request carrying the configured X-API-KEY is treated as
// the admin service identity; an empty apiKey disables that path.
func AuthRequired(issuer *utils.TokenIssuer, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); apiKey != "" && key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				c.Set("user_id", ServiceUserID)
				c.Set("user_email", "")
				c.Set("user_role", models.RoleAdmin)
				c.Next()
				return
			}
			log.Println("AuthRequired: X-API-KEY did not match")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API key"})
			return
		}

		tokenString, err := c.Cookie("jwt_token")
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				log.Println("AuthRequired: No JWT token found in cookie or header")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}

		claims, err := issuer.ValidateJWT(tokenString)
		if err != nil {
			log.Printf("AuthRequired: Invalid JWT token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)

		log.WithFields(log.Fields{"user_id": claims.UserID, "role": claims.Role}).Debug("AuthRequired: User authenticated")
		c.Next()
	}
}

// RoleRequired rejects authenticated callers whose role is not listed.
// It must run after AuthRequired.
func RoleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("user_role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		log.Printf("RoleRequired: role %q denied for %s %s", role, c.Request.Method, c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient role"})
	}
}
