package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/velabs/studioforge-backend/internal/logger"
	"github.com/velabs/studioforge-backend/internal/utils"
)

const (
	ContextUserID   = "user_id"
	ContextStudioID = "studio_id"
	ContextRole     = "role"
)

// Auth validates the bearer token and stores the caller's identity, studio
// and role on the gin context. Tokens are issued by the studio's identity
// service; this process only verifies them.
func Auth(log *logger.Logger) gin.HandlerFunc {
	secret := []byte(utils.GetEnv("JWT_SECRET_KEY", "", log))
	authLog := log.With("middleware", "Auth")
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			authLog.Debug("Rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, err := claimUUID(claims, "user_id")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		studioID, err := claimUUID(claims, "studio_id")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		role, _ := claims["role"].(string)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Set(ContextStudioID, studioID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

func claimUUID(claims jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, ok := claims[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("claim %q missing", key)
	}
	return uuid.Parse(raw)
}

// UserID returns the authenticated caller id set by Auth.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func StudioID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextStudioID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func Role(c *gin.Context) string {
	if v, ok := c.Get(ContextRole); ok {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}
