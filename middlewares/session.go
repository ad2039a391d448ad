package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	PlayerIDHeader      = "X-Player-Id"
	PlayerNameHeader    = "X-Player-Name"
	InternalTokenHeader = "X-Internal-Token"

	PlayerIDKey   = "playerId"
	PlayerNameKey = "playerName"
)

const maxPlayerFieldLength = 64

// SessionMiddleware reads the caller identity headers into the request context. A missing
// id leaves the caller anonymous, which is enough to read rooms and post as a spectator.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := strings.TrimSpace(c.GetHeader(PlayerIDHeader))
		playerName := strings.TrimSpace(c.GetHeader(PlayerNameHeader))
		if len(playerID) > maxPlayerFieldLength || len(playerName) > maxPlayerFieldLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player headers"})
			c.Abort()
			return
		}
		if playerName == "" {
			playerName = playerID
		}

		c.Set(PlayerIDKey, playerID)
		c.Set(PlayerNameKey, playerName)
		c.Next()
	}
}

// RequirePlayer rejects anonymous callers
func RequirePlayer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(PlayerIDKey) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing " + PlayerIDHeader + " header"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// InternalTokenMiddleware guards scheduler and admin routes with a shared token. An empty
// token leaves the routes open.
func InternalTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(InternalTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid internal token"})
			c.Abort()
			return
		}
		c.Next()
	}
}
