package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/scormbridge/internal/bridge"
	"github.com/yungbote/scormbridge/internal/config"
	"github.com/yungbote/scormbridge/internal/db"
	"github.com/yungbote/scormbridge/internal/http"
	httpH "github.com/yungbote/scormbridge/internal/http/handlers"
	httpMW "github.com/yungbote/scormbridge/internal/http/middleware"
	"github.com/yungbote/scormbridge/internal/observability"
	"github.com/yungbote/scormbridge/internal/platform/logger"
	"github.com/yungbote/scormbridge/internal/realtime"
	"github.com/yungbote/scormbridge/internal/realtime/bus"
	"github.com/yungbote/scormbridge/internal/repos"
	"github.com/yungbote/scormbridge/internal/scorm/launch"
	"github.com/yungbote/scormbridge/internal/scorm/resource"
	"github.com/yungbote/scormbridge/internal/services"
)

const sweepInterval = time.Minute

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	DB       *db.Service
	Launcher *launch.Launcher
	Sessions *services.SessionService
	Hub      *realtime.Hub
	Bus      bus.Bus
	Server   *http.Server

	closers []func() error
	cancel  context.CancelFunc
}

// New wires storage, the launch pipeline, runtime sessions and the HTTP shell.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{Log: log, Cfg: cfg}

	dbService, err := db.Open(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbService
	a.closers = append(a.closers, dbService.Close)
	if err := dbService.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}

	locatorOpts := []resource.Option{
		resource.WithTimeout(cfg.Launch.ProbeTimeout.Duration),
		resource.WithUserAgent(cfg.Launch.UserAgent),
	}
	store, closeStore, err := resolveObjectStore(ctx, log, cfg.GCS)
	if err != nil {
		a.Close()
		return nil, err
	}
	if store != nil {
		locatorOpts = append(locatorOpts, resource.WithObjectStore(store))
		a.closers = append(a.closers, closeStore)
	}
	a.Launcher = launch.New(log, resource.NewLocator(log, locatorOpts...))

	eventBus, err := bus.New(log, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init bridge bus: %w", err)
	}
	a.Bus = eventBus
	a.closers = append(a.closers, eventBus.Close)
	a.Hub = realtime.NewHub(log)

	roots := services.RootPolicy(cfg.Launch.AllowedRoots)
	attempts := repos.NewAttemptRepo(dbService.DB(), log)
	tokens := services.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TTL.Duration)
	a.Sessions = services.NewSessionService(log, attempts, a.Launcher, tokens, roots)

	urls := httpH.URLBuilder{Base: cfg.HTTP.PublicBaseURL}
	a.Server = http.NewServer(http.RouterConfig{
		Log:               log,
		CORSOrigins:       cfg.HTTP.CORSOrigins,
		SessionMiddleware: httpMW.NewSessionMiddleware(log, a.Sessions),
		HealthHandler:     httpH.NewHealthHandler(),
		LaunchHandler:     httpH.NewLaunchHandler(log, a.Launcher, roots),
		SessionHandler:    httpH.NewSessionHandler(log, a.Sessions, urls),
		BridgeHandler:     httpH.NewBridgeHandler(log, bridge.NewDispatcher(log), a.Bus, urls),
		ContentHandler:    httpH.NewContentHandler(log, urls),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, a.Hub),
	})
	observability.RegisterMetrics()
	return a, nil
}

// Start forwards bus events into the hub and begins expiring sessions.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start bridge forwarder: %w", err)
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				a.Sessions.Sweep(now)
			}
		}
	}()
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
	return a.Server.Run(ctx, a.Cfg.HTTP.Addr, a.Cfg.HTTP.ReadHeaderTimeout.Duration, a.Cfg.HTTP.ShutdownTimeout.Duration)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("Shutdown step failed", "error", err)
		}
	}
	a.closers = nil
	a.Log.Sync()
}
