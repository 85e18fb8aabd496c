package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zenetia/zap/pkg/cache"
	"github.com/zenetia/zap/pkg/config"
	"github.com/zenetia/zap/pkg/handler"
	"github.com/zenetia/zap/pkg/storage"
	"github.com/zenetia/zap/pkg/utils"
	"github.com/zenetia/zap/pkg/validator"
	"github.com/zenetia/zap/pkg/version"
)

func main() {
	var (
		listenAddr = flag.String("listen", "", "Address to listen on (overrides config)")
		logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	setupLogging(cfg.LogLevel)

	versionInfo := version.Get()
	slog.Info("Starting Zap Converter",
		slog.String("version", versionInfo.Version),
		slog.String("commit", versionInfo.Commit),
		slog.String("date", versionInfo.Date),
	)

	store, err := storage.NewStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fetcher := cache.NewHTTPFetcher(cfg.JWKSURL, cfg.FetchTimeout)
	keys := cache.NewKeyStore(fetcher)
	tokenValidator := validator.NewTokenValidator(cfg, keys)
	gate := handler.NewAuthGate(tokenValidator)

	api := handler.NewAPI(cfg, store)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(gate),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		slog.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("Listening", slog.String("addr", cfg.ListenAddr), slog.String("issuer", cfg.Issuer))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Server stopped")
}

func setupLogging(level string) {
	lvl, err := utils.ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	slog.SetDefault(slog.New(handler))
}
