package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/univio-api/internal/app"
	"github.com/univio-api/internal/config"
	"github.com/univio-api/internal/logger"
	transporthttp "github.com/univio-api/internal/transport/http"
	"github.com/univio-api/internal/worker/cleanup"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close backends", "err", err)
		}
	}()

	deps := &transporthttp.Deps{
		Challenges:   a.Challenges,
		Registration: a.Registration,
		Sessions:     a.Sessions,
		Profiles:     a.Profiles,
		Catalog:      a.Catalog,
		Recovery:     a.Recovery,
		Metrics:      a.Registry,
		Checks:       a.Checks,
	}
	if a.Tokens != nil {
		deps.Tokens = a.Tokens
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "verification_backend", cfg.VerificationBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return cleanup.NewWorker(a.Challenges, cfg.CleanupInterval, log).Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}
