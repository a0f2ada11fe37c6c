package application

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/grace0927/sccny-live/internal/config"
	"github.com/grace0927/sccny-live/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// syncSpyCore records whether Sync was called.
type syncSpyCore struct {
	zapcore.Core
	synced *atomic.Bool
}

func (c *syncSpyCore) Sync() error {
	c.synced.Store(true)
	return c.Core.Sync()
}

func TestRunFlushesLoggerOnShutdown(t *testing.T) {
	var synced atomic.Bool
	logger := zap.New(&syncSpyCore{Core: zapcore.NewNopCore(), synced: &synced})

	app := &API{
		cfg:    &config.Config{AppHost: "127.0.0.1", HTTPPort: "0"},
		srv:    &http.Server{Addr: "127.0.0.1:0"},
		hub:    service.NewBroadcastHub(8, zap.NewNop()),
		logger: logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !synced.Load() {
		t.Fatal("logger must be flushed when Run returns")
	}
}
