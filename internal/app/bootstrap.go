package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"signal_bridge/internal/domain"
	"signal_bridge/internal/execution"
	"signal_bridge/internal/infra"
	"signal_bridge/internal/infra/stock"
	"signal_bridge/internal/infra/storage"
	"signal_bridge/internal/infra/telegram"
	"signal_bridge/internal/infra/tinkoff"
	"signal_bridge/internal/service"
)

// ConfigPathEnv overrides infra.DefaultConfigPath
const ConfigPathEnv = "SIGNAL_BRIDGE_CONFIG"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Storage
	Metrics  *infra.Metrics
	Resolver *service.InstrumentResolver
	Server   *stock.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up logging and storage, and wires the pipeline.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	path := os.Getenv(ConfigPathEnv)
	if path == "" {
		path = infra.DefaultConfigPath
	}
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger (before any component captures slog.Default)
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping Signal Bridge...",
		slog.String("config", path),
		slog.Bool("sandbox", cfg.Broker.Sandbox),
	)

	// 3. Initialize Storage (DB) and sync the instrument catalog
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store

	if err := store.SyncTickers(cfg.Tickers); err != nil {
		return fmt.Errorf("failed to sync tickers: %w", err)
	}
	instruments, err := store.ActiveInstruments()
	if err != nil {
		return fmt.Errorf("failed to load instruments: %w", err)
	}
	resolver, err := service.NewInstrumentResolver(instruments)
	if err != nil {
		return err
	}
	b.Resolver = resolver
	slog.Info("✅ Instrument catalog ready", slog.Int("tickers", len(instruments)))

	// 4. Venue client, notifier and pipeline
	b.Metrics = infra.NewMetrics()

	client := tinkoff.NewClient(tinkoff.Config{
		BaseURL: cfg.BrokerURL(),
		Token:   cfg.Broker.Token,
		AppName: cfg.Broker.AppName,
		Sandbox: cfg.Broker.Sandbox,
	})

	var broker domain.Broker = client
	sandboxEnabled := cfg.Broker.Sandbox
	if cfg.Broker.Paper {
		broker = execution.NewPaperExecution(0)
		sandboxEnabled = false
		slog.Warn("📝 Paper trading: orders are filled in memory, nothing reaches the venue")
	}

	notifier := telegram.NewNotifier(telegram.Config{
		APIURL:  cfg.Telegram.APIURL,
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		Timeout: cfg.Telegram.Timeout,
	}, b.Metrics)
	if !notifier.Enabled() {
		slog.Warn("⚠️ Telegram is not configured, notifications are only logged")
	}

	submitter := service.NewOrderSubmitter(broker, service.NewKeyGenerator(), service.SubmitterConfig{
		AccountID: cfg.Broker.AccountID,
		Timeout:   cfg.Broker.SubmitTimeout,
	})

	webhook := stock.NewWebhookHandler(
		service.NewSignalValidator(resolver),
		submitter,
		notifier,
		b.Metrics,
		cfg.Server.MaxBodyBytes,
	)

	sandbox := service.NewSandboxService(sandboxEnabled, client, store, cfg.Sandbox.Balances)

	b.Server = stock.NewServer(cfg.Server.Addr, cfg.Server.CORSOrigins, stock.ServerDeps{
		Webhook: webhook,
		Sandbox: sandbox,
		Metrics: b.Metrics,
		Tickers: resolver,
	})

	slog.Warn("⚠️ /webhook is unauthenticated: anyone who can reach it can place orders; restrict access at the network level")
	return nil
}

// Shutdown stops the HTTP server and closes storage.
func (b *Bootstrap) Shutdown(ctx context.Context) error {
	var serverErr error
	if b.Server != nil {
		serverErr = b.Server.Shutdown(ctx)
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Error("Failed to close storage", slog.Any("error", err))
		}
	}
	return serverErr
}
