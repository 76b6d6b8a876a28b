// Command szmessage validates newline-delimited Senzing message envelopes
// read from the files named on the command line, or stdin, and relays the
// valid ones to the configured sink. Configuration comes from the
// environment (see internal/pkg/config).
//
// Exit status is 0 when every line was accepted, 1 when some lines were
// rejected and FAIL_ON_REJECT is set, and 2 on any other failure.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/szmessage/internal/adapter/metrics"
	"github.com/V4T54L/szmessage/internal/adapter/pii"
	"github.com/V4T54L/szmessage/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/szmessage/internal/adapter/repository/redis"
	"github.com/V4T54L/szmessage/internal/adapter/repository/stream"
	"github.com/V4T54L/szmessage/internal/adapter/repository/wal"
	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/internal/pkg/config"
	"github.com/V4T54L/szmessage/internal/pkg/logger"
	"github.com/V4T54L/szmessage/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

const (
	exitOK       = 0
	exitRejected = 1
	exitFailure  = 2

	healthCheckInterval = 5 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitFailure
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewValidateMetrics()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, rejects, cleanup, err := openSinks(ctx, cfg, logger, m)
	if err != nil {
		logger.Error("failed to initialize sink", "sink", cfg.Sink, "error", err)
		return exitFailure
	}
	defer cleanup()

	var redactor *pii.Redactor
	if len(cfg.RedactDetailKeys) > 0 {
		redactor = pii.NewRedactor(cfg.RedactDetailKeys, logger)
	}

	uc := usecase.NewValidateMessagesUseCase(sink, rejects, redactor, m, logger, usecase.Options{
		MaxMessageSize:    cfg.MaxMessageSize,
		BatchSize:         cfg.BatchSize,
		RetryCount:        cfg.WriteRetryCount,
		RetryBackoff:      cfg.WriteRetryBackoff,
		RejectLogFirst:    cfg.RejectLogFirst,
		RejectLogInterval: cfg.RejectLogInterval,
	})

	if len(args) == 0 {
		args = []string{"-"}
	}

	var total domain.Summary
	runErr := func() error {
		for _, name := range args {
			summary, err := validateInput(ctx, uc, name)
			total.Add(summary)
			if err != nil {
				return err
			}
		}
		return nil
	}()

	if err := sink.Close(); err != nil {
		logger.Error("failed to close sink", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	logger.Info("validation finished",
		"lines", total.Lines,
		"accepted", total.Accepted,
		"rejected", total.Rejected,
		"unknown_levels", total.UnknownLevels,
		"redacted", total.Redacted,
		"rejected_by_kind", total.ByKind,
	)

	switch {
	case runErr != nil:
		logger.Error("validation aborted", "error", runErr)
		return exitFailure
	case total.Rejected > 0 && cfg.FailOnReject:
		return exitRejected
	default:
		return exitOK
	}
}

func validateInput(ctx context.Context, uc *usecase.ValidateMessagesUseCase, name string) (domain.Summary, error) {
	if name == "-" {
		return uc.Run(ctx, name, os.Stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return domain.Summary{}, err
	}
	defer f.Close()
	return uc.Run(ctx, name, f)
}

// openSinks builds the sink selected by cfg. The returned cleanup releases
// connections and files after the sink has been closed.
func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.ValidateMetrics) (domain.MessageSink, domain.RejectSink, func(), error) {
	noop := func() {}

	switch cfg.Sink {
	case config.SinkStdout:
		repo := stream.NewMessageRepository(os.Stdout, nil)
		return repo, nil, noop, nil

	case config.SinkDiscard:
		repo := stream.NewMessageRepository(io.Discard, nil)
		return repo, nil, noop, nil

	case config.SinkWAL:
		walRepo, err := wal.NewRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return walRepo, nil, noop, nil

	case config.SinkRedis:
		redisOpts, err := redisOptions(cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to parse redis address: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)

		var walRepo *wal.Repository
		var fallback domain.WALRepository
		if cfg.WALPath != "" {
			walRepo, err = wal.NewRepository(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, logger)
			if err != nil {
				redisClient.Close()
				return nil, nil, nil, err
			}
			fallback = walRepo
		}

		repo := redisrepo.NewMessageRepository(ctx, redisClient, logger, cfg.RedisStream, cfg.RedisDLQStream, fallback, m.WALActive)
		if err := repo.ReplayWAL(ctx); err != nil {
			logger.Warn("could not replay WAL on startup", "error", err)
		}

		// Start Redis health check and WAL replay loop
		healthCtx, cancelHealth := context.WithCancel(ctx)
		go repo.StartHealthCheck(healthCtx, healthCheckInterval)

		cleanup := func() {
			cancelHealth()
			if walRepo != nil {
				walRepo.Close()
			}
			redisClient.Close()
		}
		return repo, repo, cleanup, nil

	case config.SinkPostgres:
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		repo := postgres.NewMessageRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return repo, nil, func() { db.Close() }, nil
	}

	return nil, nil, nil, errors.New("unknown sink " + cfg.Sink)
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}
