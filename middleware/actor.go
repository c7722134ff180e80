package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	ActorIDKey   = "actor_id"
	ActorNameKey = "actor_name"

	ActorIDHeader   = "X-Actor-ID"
	ActorNameHeader = "X-Actor-Name"
)

// Actor extracts the acting user's identity from request headers.
// Authentication itself lives upstream (gateway); this service only
// needs a stable actor ID and a display name to snapshot onto events.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ActorIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + ActorIDHeader + " header"})
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + ActorIDHeader + " header"})
			return
		}
		c.Set(ActorIDKey, id)
		c.Set(ActorNameKey, c.GetHeader(ActorNameHeader))
		c.Next()
	}
}

// GetActorID retrieves the actor ID from the Gin context.
func GetActorID(c *gin.Context) int64 {
	if v, exists := c.Get(ActorIDKey); exists {
		return v.(int64)
	}
	return 0
}

// GetActorName retrieves the actor display name from the Gin context.
func GetActorName(c *gin.Context) string {
	if v, exists := c.Get(ActorNameKey); exists {
		return v.(string)
	}
	return ""
}
