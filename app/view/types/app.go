package types

import (
	"context"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/keys"
	"github.com/mosaic-network/walletx/pkg/redis"
	"github.com/mosaic-network/walletx/pkg/rpc"
	"github.com/mosaic-network/walletx/pkg/store"
	"github.com/mosaic-network/walletx/pkg/view"
)

type App struct {
	Store     *store.Memory
	View      *view.Service
	Querier   rpc.Querier
	Addresses keys.AddressProvider
	// RedisClient mirrors record events; nil when Redis is disabled.
	RedisClient *redis.Client
	// Cron runs the periodic stale-price sweep.
	Cron *cron.Cron
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	if a.Cron != nil {
		a.Cron.Start()
	}

	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}

	a.View.Close()

	if err := a.Store.Close(); err != nil {
		a.Logger.Error("Failed to close record store", zap.Error(err))
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	_ = a.Server.Shutdown(shutdownCtx)
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
