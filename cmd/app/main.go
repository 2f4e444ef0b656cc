package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"signal_bridge/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. HTTP Server
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- bootstrap.Server.Start()
	}()

	slog.InfoContext(ctx, "✨ Signal Bridge fully operational. Press Ctrl+C to exit.",
		slog.String("addr", cfg.Server.Addr),
		slog.Bool("sandbox", cfg.Broker.Sandbox),
	)

	// Wait for shutdown signal or server failure
	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			slog.Error("❌ HTTP server failed", slog.Any("error", err))
			exitCode = 1
		}
	}

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := bootstrap.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown did not complete", slog.Any("error", err))
		exitCode = 1
	}

	if exitCode != 0 {
		stop()
		cancel()
		os.Exit(exitCode)
	}
}
