package auth

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie used across handlers and middleware.
const CookieName = "session_id"

const contextKeyUserID = "user_id"

// UserIDFromContext returns the current user ID set by RequireSession. 0 if not set.
func UserIDFromContext(c *gin.Context) int64 {
	v, ok := c.Get(contextKeyUserID)
	if !ok {
		return 0
	}
	id, ok := v.(int64)
	if !ok {
		return 0
	}
	return id
}

// RequireSession returns a middleware that checks for a valid session cookie
// and sets the current user ID in context. Browsers without a session are
// sent to the login page with the original URL in ?next so login can return
// them afterwards.
func RequireSession(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(CookieName)
		if err != nil || sessionID == "" {
			redirectToLogin(c)
			return
		}
		userID, ok := sessions.GetUserID(c.Request.Context(), sessionID)
		if !ok {
			redirectToLogin(c)
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	next := url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusSeeOther, "/login?next="+next)
	c.Abort()
}
