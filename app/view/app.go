package view

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/app/view/types"
	"github.com/mosaic-network/walletx/pkg/keys"
	"github.com/mosaic-network/walletx/pkg/logging"
	"github.com/mosaic-network/walletx/pkg/metrics"
	"github.com/mosaic-network/walletx/pkg/redis"
	"github.com/mosaic-network/walletx/pkg/rpc"
	"github.com/mosaic-network/walletx/pkg/store"
	"github.com/mosaic-network/walletx/pkg/utils"
	viewsvc "github.com/mosaic-network/walletx/pkg/view"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	seed := utils.Env("WALLET_SEED", "")
	addresses, err := keys.NewSeedProvider([]byte(seed))
	if err != nil {
		logger.Fatal("Unable to initialize address provider, set WALLET_SEED", zap.Error(err))
	}

	endpoints := utils.Dedup(strings.Split(utils.Env("RPC_ENDPOINTS", "http://localhost:50002"), ","))
	querier := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints:       endpoints,
		Timeout:         utils.EnvDuration("RPC_TIMEOUT", 10*time.Second),
		RPS:             utils.EnvInt("RPC_RPS", 20),
		Burst:           utils.EnvInt("RPC_BURST", 40),
		BreakerFailures: utils.EnvInt("RPC_BREAKER_FAILURES", 5),
		BreakerCooldown: utils.EnvDuration("RPC_BREAKER_COOLDOWN", 30*time.Second),
	})
	logger.Info("RPC client initialized", zap.Strings("endpoints", endpoints))

	// Initialize Redis client for the record-event mirror (optional)
	var redisClient *redis.Client
	var sinks []store.EventSink
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - record events will not be mirrored",
				zap.Error(err))
			redisClient = nil
		} else {
			sinks = append(sinks, redis.NewMirror(redisClient, logger))
			logger.Info("Redis client initialized for record-event mirroring")
		}
	} else {
		logger.Info("Redis disabled - record events will not be mirrored")
	}

	sinks = append(sinks, metricsSink{})
	recordStore := store.NewMemory(logger, sinks...)
	_ = recordStore.SetEpochDuration(ctx, utils.EnvUint64("EPOCH_DURATION", 0))

	app := &types.App{
		Store:       recordStore,
		View:        viewsvc.New(logger, recordStore, querier, addresses),
		Querier:     querier,
		Addresses:   addresses,
		RedisClient: redisClient,
		Cron:        newPriceSweep(ctx, logger, recordStore),
		Logger:      logger,
	}

	return app
}

// metricsSink counts record events as they are published by the store.
type metricsSink struct{}

func (metricsSink) RecordUpdated(category store.Category, _ store.Record) {
	metrics.Default().RecordEvents.WithLabelValues(string(category)).Inc()
}

// newPriceSweep schedules the periodic removal of price observations too
// old to ever be relevant again. Schedule is a cron spec, default every ten
// minutes.
func newPriceSweep(ctx context.Context, logger *zap.Logger, recordStore *store.Memory) *cron.Cron {
	c := cron.New()
	schedule := utils.Env("PRICE_SWEEP_SCHEDULE", "@every 10m")

	_, err := c.AddFunc(schedule, func() {
		height, err := recordStore.SyncHeight(ctx)
		if err != nil || height == 0 {
			return
		}
		epoch, err := recordStore.EpochDuration(ctx)
		if err != nil || epoch == 0 || height <= epoch {
			return
		}

		removed, err := recordStore.PrunePricesBelow(ctx, height-epoch)
		if err != nil {
			logger.Warn("Price sweep failed", zap.Error(err))
			return
		}
		if removed > 0 {
			logger.Info("Swept stale prices",
				zap.Int("removed", removed),
				zap.Uint64("belowHeight", height-epoch))
		}
	})
	if err != nil {
		logger.Fatal("Invalid price sweep schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	return c
}
