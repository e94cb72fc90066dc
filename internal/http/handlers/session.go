package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scormbridge/internal/http/response"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/services"
)

type SessionHandler struct {
	log      *logger.Logger
	sessions *services.SessionService
	urls     URLBuilder
}

func NewSessionHandler(log *logger.Logger, sessions *services.SessionService, urls URLBuilder) *SessionHandler {
	return &SessionHandler{log: log.With("handler", "SessionHandler"), sessions: sessions, urls: urls}
}

type startSessionRequest struct {
	LearnerID   string `json:"learner_id"`
	LearnerName string `json:"learner_name"`
	Root        string `json:"root"`
}

type sessionResponse struct {
	SessionID  string         `json:"session_id"`
	Token      string         `json:"token"`
	ExpiresAt  time.Time      `json:"expires_at"`
	Launch     launchResponse `json:"launch"`
	ContentURL string         `json:"content_url"`
	ScriptURL  string         `json:"script_url"`
	BridgeURL  string         `json:"bridge_url"`
	SocketURL  string         `json:"socket_url"`
}

// POST /api/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Root == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingRoot)
		return
	}
	sess, err := h.sessions.Start(c.Request.Context(), services.StartRequest{
		LearnerID:   req.LearnerID,
		LearnerName: req.LearnerName,
		Root:        req.Root,
	})
	if err != nil {
		h.log.Warn("Session start failed", "learner_id", req.LearnerID, "root", req.Root, "error", err)
		response.RespondAPIError(c, classify(err))
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{
		SessionID:  sess.ID.String(),
		Token:      sess.Token,
		ExpiresAt:  sess.ExpiresAt,
		Launch:     newLaunchResponse(sess.Resolution),
		ContentURL: h.urls.Content(c, sess.ID, sess.Resolution.FileName, sess.Token),
		ScriptURL:  h.urls.Script(c, sess.ID, sess.Token),
		BridgeURL:  h.urls.Messages(c, sess.ID),
		SocketURL:  h.urls.Socket(c, sess.ID),
	})
}
