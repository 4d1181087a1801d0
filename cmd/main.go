package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/allegro"
	"github.com/monmat/order-manager/internal/config"
	"github.com/monmat/order-manager/internal/db"
	"github.com/monmat/order-manager/internal/kafka"
	"github.com/monmat/order-manager/internal/logger"
	"github.com/monmat/order-manager/internal/order"
	"github.com/monmat/order-manager/internal/repository/postgresql"
	"github.com/monmat/order-manager/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	log := logger.New(cfg.Debug)
	defer func() { _ = log.Sync() }()

	database, err := db.NewDb(ctx, cfg.DSN())
	if err != nil {
		log.Error("database init", zap.Error(err))
		os.Exit(1)
	}
	defer database.GetPool().Close()

	orderRepo := postgresql.NewOrderRepo(database)
	settingsRepo := postgresql.NewSettingsRepo(database)
	userRepo := postgresql.NewUserRepo(database)

	var producer kafka.Producer
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaBrokers[0] != "" {
		producer = kafka.NewWriterProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		producer = kafka.NewLogProducer(log)
	}
	defer func() { _ = producer.Close() }()

	orderService := order.NewService(orderRepo, producer, log)

	apiClient := allegro.NewClient(cfg.AllegroAPIURL, cfg.AllegroAuthURL)
	tokenCache := allegro.NewTokenCache(apiClient, settingsRepo, log)
	mapper := allegro.NewMapper(cfg.DefaultCurrency, cfg.DefaultCountryCode, log)
	syncer := allegro.NewSyncer(tokenCache, apiClient, orderService, mapper, allegro.SyncerConfig{
		Interval: cfg.SyncInterval,
		PageSize: cfg.SyncPageSize,
		MaxPages: cfg.SyncMaxPages,
	}, log)

	go syncer.Run(ctx)

	srv := server.New(orderService, userRepo, log)
	go func() {
		if err := srv.Run(cfg.HTTPPort); err != nil {
			log.Error("http server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
