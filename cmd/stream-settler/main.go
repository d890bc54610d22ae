package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tunestake/royalty-ledger/internal/config"
	"github.com/tunestake/royalty-ledger/internal/logger"
	"github.com/tunestake/royalty-ledger/internal/providers/jetstream"
	"github.com/tunestake/royalty-ledger/internal/rates"
	"github.com/tunestake/royalty-ledger/internal/royalty"
	"github.com/tunestake/royalty-ledger/internal/settlement"
	"github.com/tunestake/royalty-ledger/internal/settler"
	"github.com/tunestake/royalty-ledger/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSettlerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "stream-settler",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting stream settler")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}

	// Initialize store and rate configuration
	dataStore := store.NewPGStore(db)
	rateStore := rates.NewStore(dataStore)
	if err := rateStore.Restore(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to restore rate configuration", zap.Error(err))
	}

	// Connect the settlement intent publisher
	publisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.Settlement.StreamName,
		ConnectionName: "royalty-ledger-settler-publisher",
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect settlement publisher", zap.Error(err))
	}
	submitter := settlement.NewNATSSubmitter(publisher, settlement.Config{
		Secret:          cfg.Settlement.Secret,
		MaxRetries:      cfg.Settlement.MaxRetries,
		InitialInterval: cfg.Settlement.InitialInterval,
	})

	// Subscribe to stream-play events
	subscriber, err := jetstream.NewSubscriber(ctx, jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		ConsumerName:   cfg.NATS.ConsumerName,
		ConnectionName: "royalty-ledger-settler",
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		AckWaitTimeout: cfg.NATS.AckWait,
		MaxDeliver:     cfg.NATS.MaxDeliver,
		Workers:        cfg.Worker.PoolSize,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect stream subscriber", zap.Error(err))
	}

	royaltySvc := royalty.NewService(dataStore, rateStore, submitter)
	s := settler.New(subscriber, royaltySvc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logger.ErrorCtx(ctx, err, zap.String("component", "settler"))
		}
		cancel()
	}

	if err := s.Close(); err != nil {
		logger.Error(err, zap.String("component", "settler"))
	}
	if err := submitter.Close(); err != nil {
		logger.Error(err, zap.String("component", "submitter"))
	}

	logger.Info("Stream settler stopped")
}
