package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prohmpiriya/ticket-storefront/internal/session"
)

const (
	// SessionIDHeader lets non-browser clients carry the session without cookies
	SessionIDHeader = "X-Session-ID"
	// SessionIDKey is the gin context key for the session id
	SessionIDKey = "session_id"
)

// SessionConfig holds the session cookie settings
type SessionConfig struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Session resolves the buyer session from the cookie or X-Session-ID header,
// issuing a new id when none or a malformed one is presented.
func Session(config SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionIDHeader)
		if id == "" {
			id, _ = c.Cookie(config.CookieName)
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(config.CookieName, id, int(config.TTL.Seconds()), "/", "", config.Secure, true)
		c.Header(SessionIDHeader, id)

		c.Set(SessionIDKey, id)
		c.Request = c.Request.WithContext(session.WithID(c.Request.Context(), id))

		c.Next()
	}
}

// GetSessionID returns the session id resolved by Session
func GetSessionID(c *gin.Context) string {
	if id, exists := c.Get(SessionIDKey); exists {
		if sid, ok := id.(string); ok {
			return sid
		}
	}
	return ""
}
