// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"golang.org/x/sync/errgroup"

	"github.com/nfps-events/ticketing/internal/auth"
	"github.com/nfps-events/ticketing/internal/config"
	"github.com/nfps-events/ticketing/internal/database"
	"github.com/nfps-events/ticketing/internal/handler"
	"github.com/nfps-events/ticketing/internal/repository"
	"github.com/nfps-events/ticketing/internal/repository/postgres"
	"github.com/nfps-events/ticketing/internal/repository/sqlite"
	"github.com/nfps-events/ticketing/internal/seed"
	"github.com/nfps-events/ticketing/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ticketing:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer)

	// ── Token helper for local development ───────────────────────────────
	if cfg.IssueToken != "" {
		token, err := issuer.Issue(cfg.IssueToken, cfg.IssueSuperuser, cfg.TokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Open the store ────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	opts := service.Options{Logger: logger}
	svc := handler.Services{
		Catalog:        service.NewCatalog(store, opts),
		Allocator:      service.NewAllocator(store, opts),
		Approvals:      service.NewApprovals(store, opts),
		PaymentMethods: service.NewPaymentMethods(store, opts),
	}

	if cfg.SeedFile != "" {
		fixture, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, fixture, svc.Catalog, svc.PaymentMethods, logger); err != nil {
			return err
		}
	}

	router := handler.NewRouter(handler.New(svc, logger, cfg.Location), issuer, logger)

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore connects to the configured backend and returns the store with
// its close function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		pool, err := database.OpenSQLite(database.SQLiteConfig{Path: cfg.SQLitePath, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(pool), func() { _ = pool.Close() }, nil
	default:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		return postgres.NewStore(pool), pool.Close, nil
	}
}
