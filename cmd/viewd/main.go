package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/app/view"
	"github.com/mosaic-network/walletx/pkg/retry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := view.Initialize(ctx)

	// Wait for a reachable fullnode before serving.
	probeErr := retry.WithBackoff(ctx, retry.DefaultConfig(), app.Logger, "fullnode probe", func() error {
		_, err := app.Querier.ChainHead(ctx)
		return err
	})
	if probeErr != nil {
		app.Logger.Warn("Fullnode unreachable, serving anyway with local sync height", zap.Error(probeErr))
	}

	serverErr := view.NewServer(app)
	if serverErr != nil {
		app.Logger.Fatal("Unable to initialize server", zap.Error(serverErr))
	}

	app.Start(ctx)
}
