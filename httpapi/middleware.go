package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/session"
)

// SessionHeader carries the session token on authenticated requests.
const SessionHeader = "X-Session-Token"

const sessionKey = "account_session"

// RequestContext threads the client address and user agent into the request
// context, where the engine reads them for last-login metadata and audit.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := goAccount.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = goAccount.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession rejects requests without an active session and stores the
// session for handlers to read with SessionFromContext.
func RequireSession(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		sess, err := accounts.ValidateSession(c.Request.Context(), c.GetHeader(SessionHeader))
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) *session.Session {
	if value, ok := c.Get(sessionKey); ok {
		if sess, ok := value.(*session.Session); ok {
			return sess
		}
	}
	return nil
}
