package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/grace0927/sccny-live/internal/config"
	"github.com/grace0927/sccny-live/internal/database"
	"github.com/grace0927/sccny-live/internal/handler"
	"github.com/grace0927/sccny-live/internal/router"
	"github.com/grace0927/sccny-live/internal/service"
	"github.com/grace0927/sccny-live/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API is the HTTP + stream API application.
type API struct {
	cfg    *config.Config
	srv    *http.Server
	db     *gorm.DB
	hub    *service.BroadcastHub
	logger *zap.Logger
}

// NewAPI creates the API application: validates config, runs migrations,
// opens DB, builds router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	hub := service.NewBroadcastHub(cfg.StreamBuffer, logger)
	st := store.NewGormStore(db)
	sessionSvc := service.NewSessionService(st, cfg, hub, logger)
	sessionHandler := handler.NewSessionHandler(sessionSvc, cfg.PublicBaseURL)
	streamHandler := handler.NewStreamHandler(hub, sessionSvc, logger)
	streamWS := handler.NewStreamWSHandler(hub, sessionSvc, logger, cfg.WSReadBufferSize, cfg.WSWriteBufferSize)
	health := handler.NewHealthHandler()

	r := router.New(sessionHandler, streamHandler, streamWS, health, cfg.OperatorToken)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: stream connections stay open for the whole session.
		IdleTimeout: 60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, hub: hub, logger: logger}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then shuts
// down gracefully.
func (a *API) Run(ctx context.Context) error {
	// Handlers log for the whole process lifetime; flush only on the way out.
	defer a.logger.Sync()
	addr := a.srv.Addr
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", addr)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Sessions:      %s/sessions", base)
	log.Printf("  Stream (SSE):  %s/sessions/:id/stream", base)
	log.Printf("  Stream (WS):   ws://%s:%s/ws/stream/:session_id", host, a.cfg.HTTPPort)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	a.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
