package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/Vegass027/50-daily-baby-sub002/internal/blob/s3"
	"github.com/Vegass027/50-daily-baby-sub002/internal/cache/redis"
	"github.com/Vegass027/50-daily-baby-sub002/internal/config"
	"github.com/Vegass027/50-daily-baby-sub002/internal/domain"
	"github.com/Vegass027/50-daily-baby-sub002/internal/exec"
	"github.com/Vegass027/50-daily-baby-sub002/internal/ledger"
	"github.com/Vegass027/50-daily-baby-sub002/internal/store/postgres"
	"github.com/Vegass027/50-daily-baby-sub002/internal/tpsl"
)

// Dependencies bundles the wired components the application modes operate
// on. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	Runner      domain.TxRunner
	Bus         domain.EventBus
	Executor    domain.OrderExecutor
	Ledger      *ledger.Service
	Coordinator *tpsl.Coordinator
	Archiver    *s3blob.TradeArchiver
}

// needsS3 returns true for modes that archive trades.
func needsS3(cfg *config.Config) bool {
	if !cfg.Archive.Enabled {
		return false
	}
	switch cfg.Mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete implementations from the configuration and
// returns them with a cleanup function to release resources on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Runner = postgres.NewRunner(pgClient.Pool(), postgres.RetryConfig{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay.Duration,
		MaxDelay:     cfg.Retry.MaxDelay.Duration,
		Multiplier:   cfg.Retry.Multiplier,
	}, logger)

	// --- Redis event bus (optional) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Bus = redis.NewEventBus(redisClient)
	}

	// --- Order execution backend ---
	// Paper is the only in-tree backend; on-chain executors plug in behind
	// the same interface.
	paper := exec.NewPaperExecutor()
	deps.Executor = paper

	// --- Services ---
	deps.Ledger = ledger.New(deps.Runner, deps.Bus, logger)
	deps.Coordinator = tpsl.New(deps.Runner, deps.Executor, paper, deps.Bus, logger)

	// --- S3 archiver (only for archiving modes) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 health: %w", err)
		}
		deps.Archiver = s3blob.NewTradeArchiver(s3blob.NewWriter(s3Client), deps.Runner, logger)
	}

	return deps, cleanup, nil
}
