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

	"github.com/rohits-web03/mediadrop/internal/api"
	"github.com/rohits-web03/mediadrop/internal/api/handlers"
	"github.com/rohits-web03/mediadrop/internal/api/services"
	"github.com/rohits-web03/mediadrop/internal/config"
	"github.com/rohits-web03/mediadrop/internal/logging"
	"github.com/rohits-web03/mediadrop/internal/repositories"
	"github.com/rohits-web03/mediadrop/internal/session"
	"github.com/rohits-web03/mediadrop/internal/workspace"
)

const (
	workspaceIdle  = 2 * time.Hour
	evictInterval  = 10 * time.Minute
	shutdownPeriod = 15 * time.Second
)

// @title MediaDrop API
// @version 1.0
// @description Select image and video files, rename them and save them to the upload history.
// @host localhost:8080
// @BasePath /
func main() {
	cfg := config.Load()
	log := logging.New(cfg.Environment)

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repositories.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	log.Info(ctx, "store ready", "driver", cfg.DBDriver)

	users := repositories.NewUserDirectory(store)
	ledger := repositories.NewUploadLedger(store, users)

	deps := workspace.Deps{
		Store:  store,
		Users:  users,
		Ledger: ledger,
		Hasher: session.BcryptHasher{},
		Logger: log,
	}
	opts := handlers.Options{
		Uploads: ledger,
		OAuth:   services.NewGoogleOAuthConfig(cfg.Google),
		Logger:  log,
	}
	if cfg.SaveStrategy == config.StrategyObject {
		objects, err := repositories.NewObjectStorage(cfg.R2)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		deps.Objects = objects
		opts.Objects = objects
	}

	reg, err := workspace.NewRegistry(cfg, deps)
	if err != nil {
		return err
	}
	go evictIdle(ctx, reg, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: api.SetupRouter(cfg, reg, handlers.New(cfg, opts), log),
		// Uploads of large videos need a longer read window than plain API calls
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting MediaDrop server", "port", cfg.Port, "strategy", cfg.SaveStrategy, "requireAuth", cfg.RequireAuth)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("could not listen on port %s: %w", cfg.Port, err)
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func evictIdle(ctx context.Context, reg *workspace.Registry, log logging.Logger) {
	t := time.NewTicker(evictInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := reg.Evict(workspaceIdle); n > 0 {
				log.Debug(ctx, "evicted idle workspaces", "count", n, "live", reg.Len())
			}
		}
	}
}
