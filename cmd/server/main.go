package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/udihermony/algo-trader/internal/api"
	"github.com/udihermony/algo-trader/internal/broker"
	"github.com/udihermony/algo-trader/internal/config"
	"github.com/udihermony/algo-trader/internal/credentials"
	"github.com/udihermony/algo-trader/internal/notifier"
	"github.com/udihermony/algo-trader/internal/pipeline"
	"github.com/udihermony/algo-trader/internal/risk"
	"github.com/udihermony/algo-trader/internal/storage"
	"github.com/udihermony/algo-trader/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.File)
	utils.SetDefault(logger)

	store, err := storage.NewPostgresStorage(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Connected to database %s", cfg.Database.DBName)

	cipher, err := credentials.NewCipher(cfg.Broker.CredentialsKey)
	if err != nil {
		logger.Error("Failed to init credentials cipher: %v", err)
		os.Exit(1)
	}

	brokerClient := broker.NewRestClient(cfg.Broker.BaseURL, cfg.Broker.RequestTimeout, cfg.Broker.RatePerSecond)
	creds := credentials.NewAccessor(store.Settings(), brokerClient, cipher, logger)

	profile, err := risk.LoadProfile(cfg.Risk.ProfilesPath, cfg.Risk.Profile)
	if err != nil {
		logger.Warn("Failed to load risk profile %q: %v, using builtin defaults", cfg.Risk.Profile, err)
		profile = risk.BuiltinProfile()
	}

	tg, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	if err != nil {
		logger.Error("Failed to init telegram notifier: %v", err)
		os.Exit(1)
	}
	var notify pipeline.Notifier
	if tg != nil {
		notify = tg
	}

	orchestrator := pipeline.NewOrchestrator(
		store.Strategies(),
		store.Orders(),
		store.Positions(),
		store.Trades(),
		pipeline.NewAlertStatusUpdater(store.Alerts()),
		creds,
		brokerClient,
		risk.NewEvaluator(),
		profile,
		logger,
		notify,
	)

	reconciler := pipeline.NewReconciler(
		store.Orders(),
		store.Positions(),
		store,
		creds,
		brokerClient,
		cfg.Reconciler.Interval,
		logger,
		notify,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler.Start(ctx)

	server := api.NewServer(strconv.Itoa(cfg.Server.Port), store, orchestrator, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server failed: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown: %v", err)
	}

	reconciler.Stop()

	logger.Info("Stopped")
}
