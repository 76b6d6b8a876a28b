package wal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/pkg/typedef"
)

const (
	segmentPrefix = "segment-"
	segmentSuffix = ".ndjson"
	filePerm      = 0644

	// maxReplayLine bounds a single encoded message read back from a segment.
	maxReplayLine = 64 << 20
)

// ErrFull is returned when a write would take the log past its size limit.
var ErrFull = errors.New("wal: max total size exceeded")

// Repository is a segmented, append-only log of encoded messages, one per
// line. It serves both as a sink of its own and as the failover buffer of
// the redis sink.
type Repository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu          sync.Mutex
	segment     *os.File
	segmentSize int64
	totalSize   int64
	nextSeq     uint64
}

// NewRepository opens the log in dir, creating the directory if needed, and
// appends to the newest existing segment.
func NewRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*Repository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", dir, err)
	}

	r := &Repository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "wal_repository"),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.openLatestSegment(); err != nil {
		return nil, err
	}
	return r, nil
}

// Write appends one message.
func (r *Repository) Write(ctx context.Context, msg typedef.SenzingMessage) error {
	return r.WriteBatch(ctx, []typedef.SenzingMessage{msg})
}

// WriteBatch appends the messages in order and syncs the segment once. The
// batch is encoded and checked against the size limit up front, so a failed
// call leaves nothing behind.
func (r *Repository) WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error {
	lines := make([][]byte, 0, len(msgs))
	var batchSize int64
	for _, msg := range msgs {
		data, err := typedef.Encode(msg)
		if err != nil {
			return domain.Permanent(fmt.Errorf("failed to encode message %s for WAL: %w", msg.ID, err))
		}
		data = append(data, '\n')
		lines = append(lines, data)
		batchSize += int64(len(data))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.totalSize+batchSize > r.maxTotalSize {
		return domain.Permanent(fmt.Errorf("%w (%d + %d > %d)", ErrFull, r.totalSize, batchSize, r.maxTotalSize))
	}
	for _, data := range lines {
		if err := r.appendLine(data); err != nil {
			return err
		}
		if err := r.rotateIfFull(); err != nil {
			return err
		}
	}
	if r.segment != nil {
		if err := r.segment.Sync(); err != nil {
			return fmt.Errorf("failed to sync WAL segment: %w", err)
		}
	}
	return nil
}

// Replay calls handler for every message in write order. Lines that no
// longer decode are logged and skipped. Segments are left in place; call
// Truncate once the handler has persisted everything.
func (r *Repository) Replay(ctx context.Context, handler func(msg typedef.SenzingMessage) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.closeSegment(); err != nil {
		r.logger.Error("Failed to close WAL segment before replay", "error", err)
	}

	segments, err := r.sortedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		r.logger.Debug("WAL is empty, nothing to replay")
		return nil
	}
	r.logger.Info("Starting WAL replay", "segment_count", len(segments))

	replayed := 0
	for _, path := range segments {
		n, err := r.replaySegment(ctx, path, handler)
		replayed += n
		if err != nil {
			return err
		}
	}

	r.logger.Info("WAL replay completed", "message_count", replayed)
	return nil
}

func (r *Repository) replaySegment(ctx context.Context, path string, handler func(msg typedef.SenzingMessage) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	replayed, line := 0, 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return replayed, err
		}
		msg, err := typedef.Decode(scanner.Bytes())
		if err != nil {
			r.logger.Warn("Failed to decode message from WAL, skipping", "error", err, "segment", filepath.Base(path), "line", line)
			continue
		}
		if err := handler(msg); err != nil {
			r.logger.Error("WAL replay handler failed, stopping replay", "error", err)
			return replayed, fmt.Errorf("replay handler failed: %w", err)
		}
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return replayed, fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return replayed, nil
}

// Truncate removes all segments and starts a fresh one.
func (r *Repository) Truncate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.closeSegment(); err != nil {
		r.logger.Error("Failed to close WAL segment before truncate", "error", err)
	}

	segments, err := r.sortedSegments()
	if err != nil {
		return err
	}
	for _, path := range segments {
		if err := os.Remove(path); err != nil {
			r.logger.Error("Failed to remove WAL segment", "path", path, "error", err)
		}
	}
	r.totalSize = 0

	r.logger.Info("WAL truncated", "segment_count", len(segments))
	return r.rotate()
}

// Size returns the bytes currently held across all segments.
func (r *Repository) Size() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSize
}

// Close syncs and closes the current segment.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeSegment()
}

func (r *Repository) appendLine(data []byte) error {
	if r.segment == nil {
		if err := r.rotate(); err != nil {
			return err
		}
	}
	n, err := r.segment.Write(data)
	r.segmentSize += int64(n)
	r.totalSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to WAL segment: %w", err)
	}
	return nil
}

func (r *Repository) rotateIfFull() error {
	if r.segmentSize < r.maxSegmentSize {
		return nil
	}
	if err := r.rotate(); err != nil {
		r.logger.Error("Failed to rotate WAL segment", "error", err)
		return err
	}
	return nil
}

func (r *Repository) rotate() error {
	if err := r.closeSegment(); err != nil {
		r.logger.Error("Failed to close WAL segment before rotating", "error", err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s%020d%s", segmentPrefix, r.nextSeq, segmentSuffix))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create new WAL segment %s: %w", path, err)
	}
	r.nextSeq++
	r.segment = f
	r.segmentSize = 0
	r.logger.Debug("Rotated to new WAL segment", "path", path)
	return nil
}

func (r *Repository) closeSegment() error {
	if r.segment == nil {
		return nil
	}
	f := r.segment
	r.segment = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Repository) openLatestSegment() error {
	segments, err := r.sortedSegments()
	if err != nil {
		return err
	}

	r.totalSize = 0
	for _, path := range segments {
		stat, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat segment %s: %w", path, err)
		}
		r.totalSize += stat.Size()
	}

	if len(segments) == 0 {
		return r.rotate()
	}

	latest := segments[len(segments)-1]
	seq, err := segmentSeq(latest)
	if err != nil {
		return err
	}
	r.nextSeq = seq + 1

	stat, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat latest segment %s: %w", latest, err)
	}
	if stat.Size() >= r.maxSegmentSize {
		return r.rotate()
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open latest segment %s: %w", latest, err)
	}
	r.segment = f
	r.segmentSize = stat.Size()
	r.logger.Info("Opened existing WAL segment", "path", latest, "size", r.segmentSize, "total_size", r.totalSize)
	return nil
}

// sortedSegments lists segment files oldest first. Sequence numbers are zero
// padded, so lexical order is write order.
func (r *Repository) sortedSegments() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			segments = append(segments, filepath.Join(r.dir, name))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func segmentSeq(path string) (uint64, error) {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), segmentPrefix), segmentSuffix)
	seq, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected WAL segment name %s: %w", path, err)
	}
	return seq, nil
}
