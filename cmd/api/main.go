package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"callcenter-insights-go/internal/auth"
	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/download"
	"callcenter-insights-go/internal/llm"
	"callcenter-insights-go/internal/logger"
	"callcenter-insights-go/internal/pipeline"
	"callcenter-insights-go/internal/server"
	"callcenter-insights-go/internal/store"
	"callcenter-insights-go/internal/transcribe"
	"callcenter-insights-go/internal/worker"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "callcenter-insights").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := store.New(cfg.StoragePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer db.Close()
	log.WithField("storage_path", cfg.StoragePath).Info("storage ready")

	chat := llm.NewClient(cfg.APIBaseURL, cfg.APIKey)
	transcriber := transcribe.NewClient(cfg)
	fetcher := download.NewFetcher()
	pipe := pipeline.New(cfg, fetcher, transcriber, chat)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(pipe, 16)
	pool.Start(ctx, 2)
	defer pool.Stop()

	handler := server.New(cfg, db, tokens, pipe, pool)

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}

	log.Info("service stopped")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
