// Package app wires configuration into concrete components and runs the
// configured mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vegass027/50-daily-baby-sub002/internal/config"
	"github.com/Vegass027/50-daily-baby-sub002/internal/feed"
	"github.com/Vegass027/50-daily-baby-sub002/internal/server"
	"github.com/Vegass027/50-daily-baby-sub002/internal/server/handler"
)

// App is the composed application.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	deps    *Dependencies
	cleanup func()
}

// New wires dependencies for the configured mode.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, cleanup, err := Wire(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		deps:    deps,
		cleanup: cleanup,
	}, nil
}

// Deps exposes the wired dependencies (used by the bot/UI layer on top).
func (a *App) Deps() *Dependencies {
	return a.deps
}

// Close releases all wired resources.
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

// Run starts the long-running loops for the configured mode and blocks until
// the context is cancelled or a loop fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	started := false

	runFeed := a.cfg.Feed.URL != "" && a.cfg.Mode != "archive"
	if runFeed {
		fillFeed := feed.NewFillFeed(a.cfg.Feed.URL, a.deps.Coordinator.OnOrderFilled, a.logger)
		g.Go(func() error {
			return fillFeed.Run(ctx)
		})
		started = true
	}

	if a.deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx)
		})
		started = true
	}

	runServer := a.cfg.Server.Port > 0
	if runServer {
		srv := a.newServer()
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
			}
			return ctx.Err()
		})
		started = true
	}

	if !started {
		return fmt.Errorf("app: nothing to run in mode %q (no feed url, server disabled, archiving disabled)", a.cfg.Mode)
	}

	a.logger.Info("app running",
		slog.String("mode", a.cfg.Mode),
		slog.Bool("feed", runFeed),
		slog.Bool("archiver", a.deps.Archiver != nil),
		slog.Bool("server", runServer),
	)
	return g.Wait()
}

// newServer builds the HTTP API server over the wired services.
func (a *App) newServer() *server.Server {
	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(a.cfg.Mode, a.logger),
		Positions: handler.NewPositionHandler(a.deps.Ledger, a.logger),
		Trades:    handler.NewTradeHandler(a.deps.Ledger, a.logger),
		TPSL:      handler.NewTPSLHandler(a.deps.Ledger, a.deps.Coordinator, a.logger),
	}, a.logger)
}

// runArchiveLoop periodically archives trades older than the retention
// window. A failed cycle is logged and retried on the next tick.
func (a *App) runArchiveLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
			n, err := a.deps.Archiver.ArchiveTrades(ctx, cutoff)
			if err != nil {
				a.logger.Error("archive cycle failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.Info("archive cycle complete", slog.Int64("trades", n))
			}
		}
	}
}
