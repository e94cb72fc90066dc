package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/scormbridge/internal/http/handlers"
	httpMW "github.com/yungbote/scormbridge/internal/http/middleware"
	"github.com/yungbote/scormbridge/internal/observability"
	"github.com/yungbote/scormbridge/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	CORSOrigins []string
	ServiceName string

	SessionMiddleware *httpMW.SessionMiddleware

	HealthHandler   *httpH.HealthHandler
	LaunchHandler   *httpH.LaunchHandler
	SessionHandler  *httpH.SessionHandler
	BridgeHandler   *httpH.BridgeHandler
	ContentHandler  *httpH.ContentHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "scormbridge"
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics())
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api")
	{
		if cfg.LaunchHandler != nil {
			api.POST("/launch", cfg.LaunchHandler.Launch)
		}
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.Start)
		}
	}

	if cfg.SessionMiddleware == nil {
		return r
	}
	requireSession := cfg.SessionMiddleware.RequireSession()

	sessions := api.Group("/sessions/:id", requireSession)
	{
		// Bridge
		if cfg.BridgeHandler != nil {
			sessions.GET("/bridge.js", cfg.BridgeHandler.Script)
			sessions.POST("/messages", cfg.BridgeHandler.Message)
			sessions.GET("/ws", cfg.BridgeHandler.Socket)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			sessions.GET("/events", cfg.RealtimeHandler.Events)
		}
	}

	// Package content
	if cfg.ContentHandler != nil {
		r.GET("/content/:id/*path", requireSession, cfg.ContentHandler.Serve)
	}

	return r
}
