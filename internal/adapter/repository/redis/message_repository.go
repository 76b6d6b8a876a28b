package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/pkg/typedef"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const closeReplayTimeout = 30 * time.Second

// MessageRepository appends accepted messages to a Redis stream and rejected
// lines to a dead-letter stream. While Redis is unreachable, messages go
// to the WAL and are replayed once the connection recovers. Delivery is at
// least once: a batch that fails halfway is written to the WAL in full.
type MessageRepository struct {
	client    *redis.Client
	logger    *slog.Logger
	wal       domain.WALRepository
	stream    string
	dlqStream string
	walActive prometheus.Gauge

	isAvailable atomic.Bool
	// walMu keeps WAL writes out of a replay, whose truncate would drop them.
	walMu sync.Mutex
}

// NewMessageRepository creates a Redis-backed sink. The WAL and the gauge
// are optional; pass nil to disable failover or its metric.
func NewMessageRepository(ctx context.Context, client *redis.Client, logger *slog.Logger, stream, dlqStream string, wal domain.WALRepository, walActive prometheus.Gauge) *MessageRepository {
	repo := &MessageRepository{
		client:    client,
		logger:    logger.With("component", "redis_repository"),
		wal:       wal,
		stream:    stream,
		dlqStream: dlqStream,
		walActive: walActive,
	}

	if err := client.Ping(ctx).Err(); err != nil {
		repo.logger.Error("Redis is unavailable on startup", "error", err)
		repo.setAvailable(false)
	} else {
		repo.setAvailable(true)
	}
	return repo
}

// StartHealthCheck monitors Redis connectivity and replays the WAL when the
// connection recovers. It blocks until ctx is done.
func (r *MessageRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if r.wal == nil {
		r.logger.Info("WAL is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Debug("Starting Redis health check and WAL replayer")

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Stopping Redis health check")
			return
		case <-ticker.C:
			r.checkHealth(ctx)
		}
	}
}

func (r *MessageRepository) checkHealth(ctx context.Context) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		if r.isAvailable.CompareAndSwap(true, false) {
			r.logger.Error("Redis connection lost", "error", err)
			r.setAvailable(false)
		}
		return
	}
	if r.isAvailable.Load() {
		return
	}
	r.logger.Info("Redis connection recovered")
	if err := r.ReplayWAL(ctx); err != nil {
		r.logger.Error("Failed to replay WAL after Redis recovery", "error", err)
		return
	}
	r.setAvailable(true)
}

// ReplayWAL sends buffered messages to the stream and truncates the WAL on success.
func (r *MessageRepository) ReplayWAL(ctx context.Context) error {
	if r.wal == nil {
		return nil
	}
	r.walMu.Lock()
	defer r.walMu.Unlock()

	replayed := 0
	err := r.wal.Replay(ctx, func(msg typedef.SenzingMessage) error {
		replayed++
		return r.addToStream(ctx, []typedef.SenzingMessage{msg})
	})
	if err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}

	if err := r.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate WAL after successful replay: %w", err)
	}

	if replayed > 0 {
		r.logger.Info("WAL replay to Redis completed successfully", "message_count", replayed)
	}
	return nil
}

// WriteBatch appends the messages to the stream in one pipeline, falling back
// to the WAL if Redis is unavailable.
func (r *MessageRepository) WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if !r.isAvailable.Load() {
		return r.writeToWAL(ctx, msgs, nil)
	}

	err := r.addToStream(ctx, msgs)
	if err == nil {
		return nil
	}
	if !isNetworkError(err) {
		return err
	}
	if r.isAvailable.CompareAndSwap(true, false) {
		r.logger.Error("Redis connection lost during write", "error", err)
		r.setAvailable(false)
	}
	return r.writeToWAL(ctx, msgs, err)
}

func (r *MessageRepository) writeToWAL(ctx context.Context, msgs []typedef.SenzingMessage, cause error) error {
	if r.wal == nil {
		if cause != nil {
			return fmt.Errorf("redis became unavailable and WAL is not configured: %w", cause)
		}
		return errors.New("redis is unavailable and WAL is not configured")
	}
	r.walMu.Lock()
	defer r.walMu.Unlock()

	r.logger.Warn("Redis is unavailable, writing to WAL", "count", len(msgs))
	if err := r.wal.WriteBatch(ctx, msgs); err != nil {
		return fmt.Errorf("failed to write %d messages to WAL: %w", len(msgs), err)
	}
	return nil
}

func (r *MessageRepository) addToStream(ctx context.Context, msgs []typedef.SenzingMessage) error {
	pipe := r.client.Pipeline()
	for _, msg := range msgs {
		values, err := messageValues(msg)
		if err != nil {
			return domain.Permanent(err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: r.stream, Values: values})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// Reject appends rejected lines to the dead-letter stream.
func (r *MessageRepository) Reject(ctx context.Context, rejections []domain.Rejection) error {
	if len(rejections) == 0 {
		return nil
	}
	if !r.isAvailable.Load() {
		return errors.New("redis is unavailable, dropping rejections")
	}

	pipe := r.client.Pipeline()
	for _, rejection := range rejections {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: r.dlqStream, Values: rejectionValues(rejection)})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	r.logger.Debug("Moved rejections to DLQ", "count", len(rejections))
	return nil
}

// Close replays anything left in the WAL if Redis is reachable. The client is
// owned by the caller.
func (r *MessageRepository) Close() error {
	if r.wal == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeReplayTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.logger.Warn("Redis still unavailable, leaving messages in WAL", "error", err)
		return nil
	}
	if err := r.ReplayWAL(ctx); err != nil {
		return err
	}
	r.setAvailable(true)
	return nil
}

func (r *MessageRepository) setAvailable(available bool) {
	r.isAvailable.Store(available)
	if r.walActive == nil {
		return
	}
	if available {
		r.walActive.Set(0)
	} else {
		r.walActive.Set(1)
	}
}

func messageValues(msg typedef.SenzingMessage) (map[string]interface{}, error) {
	payload, err := typedef.Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message %s: %w", msg.ID, err)
	}
	return map[string]interface{}{
		"payload":    payload,
		"ingest_id":  uuid.NewString(),
		"message_id": msg.ID,
		"level":      string(msg.Level),
	}, nil
}

func rejectionValues(rejection domain.Rejection) map[string]interface{} {
	return map[string]interface{}{
		"payload":   rejection.Raw,
		"kind":      rejection.Kind,
		"field":     rejection.Field,
		"error":     rejection.Error,
		"source":    rejection.Source,
		"line":      strconv.Itoa(rejection.Line),
		"failed_at": rejection.RejectedAt.Format(time.RFC3339),
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
