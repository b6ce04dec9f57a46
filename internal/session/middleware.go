package session

import (
	"github.com/gin-gonic/gin"
	"github.com/sh03m2a5h/filesession-go/internal/identity"
	"github.com/sh03m2a5h/filesession-go/internal/middleware"
)

// ContextKey is the gin context key holding the bound *Session
const ContextKey = "session"

// Middleware binds a Session to every request. Once the handlers have run it
// flags the gin context when a new id was issued, for the access log.
func Middleware(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = identity.WithScope(c.Request)
		c.Set(ContextKey, Bind(store, c.Writer, c.Request))

		c.Next()

		if identity.Issued(c.Request) {
			c.Set(middleware.SessionIssuedKey, true)
		}
	}
}

// FromContext returns the Session bound by Middleware
func FromContext(c *gin.Context) (*Session, bool) {
	v, exists := c.Get(ContextKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}
