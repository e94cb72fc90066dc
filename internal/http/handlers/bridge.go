package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/scormbridge/internal/bridge"
	"github.com/yungbote/scormbridge/internal/http/middleware"
	"github.com/yungbote/scormbridge/internal/http/response"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/realtime"
	"github.com/yungbote/scormbridge/internal/realtime/bus"
	"github.com/yungbote/scormbridge/internal/services"
)

const maxBodyBytes = 1 << 20

// BridgeHandler is the HTTP face of the host half: it serves the content
// script and dispatches the messages it relays.
type BridgeHandler struct {
	log        *logger.Logger
	dispatcher *bridge.Dispatcher
	bus        bus.Bus
	urls       URLBuilder
	upgrader   websocket.Upgrader
}

func NewBridgeHandler(log *logger.Logger, dispatcher *bridge.Dispatcher, eventBus bus.Bus, urls URLBuilder) *BridgeHandler {
	return &BridgeHandler{
		log:        log.With("handler", "BridgeHandler"),
		dispatcher: dispatcher,
		bus:        eventBus,
		urls:       urls,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Sessions are authorized by token, not origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// GET /api/sessions/:id/bridge.js
func (h *BridgeHandler) Script(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	targets, err := bridge.ParseTargets(c.Query("targets"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_targets", err)
		return
	}
	opts := bridge.ScriptOptions{
		Record:   sess.API.Snapshot(),
		Targets:  targets,
		Endpoint: h.urls.Messages(c, sess.ID),
		Token:    sess.Token,
	}
	switch c.Query("transport") {
	case "", "http":
	case "ws":
		opts.Endpoint = withToken(h.urls.Socket(c, sess.ID), sess.Token)
		opts.Token = ""
	case "post":
		opts.Endpoint = ""
		opts.Token = ""
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_transport", errors.New("transport must be http, ws or post"))
		return
	}
	js, err := bridge.Script(opts)
	if err != nil {
		h.log.Error("Failed to render bridge script", "session_id", sess.ID.String(), "error", err)
		response.RespondError(c, http.StatusInternalServerError, "script_failed", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", []byte(js))
}

// POST /api/sessions/:id/messages
func (h *BridgeHandler) Message(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_message", err)
		return
	}
	msg, err := bridge.Decode(raw)
	if err != nil {
		// Handle logs and counts the failure.
		reply := h.dispatcher.Handle(c.Request.Context(), raw, sess.API)
		response.RespondError(c, http.StatusBadRequest, "invalid_message", errors.New(reply.Error))
		return
	}
	reply := h.dispatch(c.Request.Context(), sess, msg)
	response.RespondOK(c, reply)
}

// GET /api/sessions/:id/ws
//
// Each text frame is one message; each gets its reply written back.
func (h *BridgeHandler) Socket(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "session_id", sess.ID.String(), "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx := c.Request.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Bridge socket closed", "session_id", sess.ID.String(), "error", err)
			}
			return
		}
		var reply bridge.Reply
		if msg, derr := bridge.Decode(raw); derr != nil {
			reply = h.dispatcher.Handle(ctx, raw, sess.API)
		} else {
			reply = h.dispatch(ctx, sess, msg)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(reply); err != nil {
			h.log.Warn("Failed to write bridge reply", "session_id", sess.ID.String(), "error", err)
			return
		}
	}
}

func (h *BridgeHandler) dispatch(ctx context.Context, sess *services.Session, msg bridge.Message) bridge.Reply {
	reply := h.dispatcher.Dispatch(ctx, msg, sess.API)
	if h.bus == nil {
		return reply
	}
	ev := realtime.Event{
		SessionID: sess.ID.String(),
		LearnerID: sess.LearnerID,
		Message:   msg,
		Reply:     reply,
		At:        time.Now().UTC(),
	}
	if err := h.bus.Publish(ctx, ev); err != nil {
		h.log.Warn("Failed to publish bridge event", "session_id", ev.SessionID, "error", err)
	}
	return reply
}
