package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/scormbridge/internal/http/middleware"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/sessions/:id/events
func (h *RealtimeHandler) Events(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	client := h.hub.NewClient()
	h.hub.AddChannel(client, realtime.SessionChannel(sess.ID.String()))
	h.log.Info("Bridge event stream open", "session_id", sess.ID.String(), "client_id", client.ID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.hub.CloseClient(client)
}
