package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/scormbridge/internal/platform/ctxutil"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/services"
)

const (
	sessionKey = "scorm_session"

	// TokenCookie carries the session token for sub-resources of a package,
	// which the content cannot append a query string to.
	TokenCookie = "scorm_token"
)

type SessionAuthorizer interface {
	Authorize(id uuid.UUID, token string) (*services.Session, error)
}

type SessionMiddleware struct {
	log      *logger.Logger
	sessions SessionAuthorizer
}

func NewSessionMiddleware(log *logger.Logger, sessions SessionAuthorizer) *SessionMiddleware {
	return &SessionMiddleware{log: log.With("Middleware", "SessionMiddleware"), sessions: sessions}
}

// RequireSession authorizes the :id route parameter against the bearer,
// query or cookie token and attaches the live session.
func (sm *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": gin.H{"message": "unknown session", "code": "session_not_found"},
			})
			return
		}
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		sess, err := sm.sessions.Authorize(id, token)
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": gin.H{"message": err.Error(), "code": "session_not_found"},
			})
			return
		case err != nil:
			sm.log.Debug("Session token rejected", "session_id", id.String(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}

		ctx := ctxutil.WithSessionData(c.Request.Context(), &ctxutil.SessionData{
			SessionID: sess.ID.String(),
			LearnerID: sess.LearnerID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the session attached by RequireSession.
func SessionFrom(c *gin.Context) *services.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*services.Session)
	return sess
}

func extractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}
