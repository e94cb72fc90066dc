package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/yungbote/scormbridge/internal/platform/ctxutil"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/services"
)

type stubAuthorizer struct {
	sess  *services.Session
	token string
}

func (s stubAuthorizer) Authorize(id uuid.UUID, token string) (*services.Session, error) {
	if s.sess == nil || id != s.sess.ID {
		return nil, services.ErrSessionNotFound
	}
	if token != s.token {
		return nil, services.ErrInvalidToken
	}
	return s.sess, nil
}

func newSessionRouter(auth SessionAuthorizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mw := NewSessionMiddleware(logger.NewNop(), auth)
	r.GET("/s/:id", mw.RequireSession(), func(c *gin.Context) {
		sess := SessionFrom(c)
		sd := ctxutil.GetSessionData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": sess.ID.String(), "learner": sd.LearnerID})
	})
	return r
}

func TestRequireSession(t *testing.T) {
	sess := &services.Session{ID: uuid.New(), LearnerID: "learner-1"}
	r := newSessionRouter(stubAuthorizer{sess: sess, token: "good"})

	cases := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{name: "query token", path: "/s/" + sess.ID.String() + "?token=good", want: http.StatusOK},
		{name: "bearer token", path: "/s/" + sess.ID.String(), header: "Bearer good", want: http.StatusOK},
		{name: "cookie token", path: "/s/" + sess.ID.String(), cookie: "good", want: http.StatusOK},
		{name: "missing token", path: "/s/" + sess.ID.String(), want: http.StatusUnauthorized},
		{name: "wrong token", path: "/s/" + sess.ID.String() + "?token=bad", want: http.StatusUnauthorized},
		{name: "unknown session", path: "/s/" + uuid.NewString() + "?token=good", want: http.StatusNotFound},
		{name: "malformed id", path: "/s/not-a-uuid?token=good", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"learner":"learner-1"`)
			}
		})
	}
}
