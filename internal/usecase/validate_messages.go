package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/V4T54L/szmessage/internal/adapter/metrics"
	"github.com/V4T54L/szmessage/internal/adapter/pii"
	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/pkg/typedef"
	"golang.org/x/time/rate"
)

// Options tunes a validation run.
type Options struct {
	MaxMessageSize    int
	BatchSize         int
	RetryCount        int
	RetryBackoff      time.Duration
	RejectLogFirst    int
	RejectLogInterval time.Duration
}

// ValidateMessagesUseCase decodes newline-delimited message envelopes,
// forwards the valid ones to a sink in input order and reports the rest.
type ValidateMessagesUseCase struct {
	sink      domain.MessageSink
	rejects   domain.RejectSink
	redactor  *pii.Redactor
	metrics   *metrics.ValidateMetrics
	logger    *slog.Logger
	opts      Options
	rejectLog *rate.Sometimes
}

// NewValidateMessagesUseCase creates a new ValidateMessagesUseCase. The
// reject sink and redactor are optional.
func NewValidateMessagesUseCase(sink domain.MessageSink, rejects domain.RejectSink, redactor *pii.Redactor, m *metrics.ValidateMetrics, logger *slog.Logger, opts Options) *ValidateMessagesUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &ValidateMessagesUseCase{
		sink:      sink,
		rejects:   rejects,
		redactor:  redactor,
		metrics:   m,
		logger:    logger,
		opts:      opts,
		rejectLog: &rate.Sometimes{First: opts.RejectLogFirst, Interval: opts.RejectLogInterval},
	}
}

// Run validates every line read from r. source names the input in logs and
// rejections. Blank lines are skipped. Run stops early only when the sink
// keeps failing, the input cannot be read or ctx is done; the summary
// covers the lines handled until then.
func (uc *ValidateMessagesUseCase) Run(ctx context.Context, source string, r io.Reader) (domain.Summary, error) {
	summary := domain.Summary{ByKind: make(map[string]int)}
	batch := make([]typedef.SenzingMessage, 0, uc.opts.BatchSize)
	var rejected []domain.Rejection
	// Pending rejections are recorded on every return path, cancellation included.
	defer func() {
		uc.flushRejects(context.WithoutCancel(ctx), rejected)
	}()

	lines := newLineReader(r, uc.opts.MaxMessageSize)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		line, tooLong, err := lines.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("failed to read %s: %w", source, err)
		}
		lineNo++
		if !tooLong && isBlank(line) {
			continue
		}
		summary.Lines++
		uc.metrics.BytesTotal.Add(float64(len(line)))

		msg, rejection, ok := uc.decode(source, lineNo, line, tooLong)
		if !ok {
			summary.Rejected++
			summary.ByKind[rejection.Kind]++
			uc.metrics.MessagesTotal.WithLabelValues(rejection.Kind).Inc()
			uc.rejectLog.Do(func() {
				uc.logger.Warn("rejected message", "source", source, "line", lineNo, "kind", rejection.Kind, "field", rejection.Field, "error", rejection.Error)
			})
			rejected = append(rejected, rejection)
			if len(rejected) >= uc.opts.BatchSize {
				uc.flushRejects(ctx, rejected)
				rejected = nil
			}
			continue
		}

		if !msg.Level.IsKnown() {
			summary.UnknownLevels++
			uc.metrics.UnknownLevelsTotal.Inc()
			uc.logger.Debug("message has an unknown level", "source", source, "line", lineNo, "level", string(msg.Level))
		}
		if uc.redactor != nil {
			var redacted bool
			if msg, redacted = uc.redactor.Redact(msg); redacted {
				summary.Redacted++
				uc.metrics.RedactedTotal.Inc()
			}
		}
		summary.Accepted++
		uc.metrics.MessagesTotal.WithLabelValues(metrics.StatusAccepted).Inc()

		batch = append(batch, msg)
		if len(batch) >= uc.opts.BatchSize {
			if err := uc.writeWithRetry(ctx, batch); err != nil {
				return summary, fmt.Errorf("failed to write batch ending at %s:%d: %w", source, lineNo, err)
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := uc.writeWithRetry(ctx, batch); err != nil {
			return summary, fmt.Errorf("failed to write final batch of %s: %w", source, err)
		}
	}
	uc.logger.Info("validated input", "source", source, "lines", summary.Lines, "accepted", summary.Accepted, "rejected", summary.Rejected, "unknown_levels", summary.UnknownLevels)
	return summary, nil
}

func (uc *ValidateMessagesUseCase) decode(source string, lineNo int, line []byte, tooLong bool) (typedef.SenzingMessage, domain.Rejection, bool) {
	if tooLong {
		rejection := domain.NewRejection(source, lineNo, line, fmt.Errorf("line exceeds %d bytes", uc.opts.MaxMessageSize))
		rejection.Kind = domain.KindTooLarge
		return typedef.SenzingMessage{}, rejection, false
	}
	msg, err := typedef.Decode(line)
	if err != nil {
		return typedef.SenzingMessage{}, domain.NewRejection(source, lineNo, line, err), false
	}
	return msg, domain.Rejection{}, true
}

func (uc *ValidateMessagesUseCase) flushRejects(ctx context.Context, rejected []domain.Rejection) {
	if uc.rejects == nil || len(rejected) == 0 {
		return
	}
	if err := uc.rejects.Reject(ctx, rejected); err != nil {
		// Rejections are diagnostic; losing them does not fail the run.
		uc.logger.Error("failed to record rejected messages", "count", len(rejected), "error", err)
	}
}

func (uc *ValidateMessagesUseCase) writeWithRetry(ctx context.Context, batch []typedef.SenzingMessage) error {
	var lastErr error
	for i := 0; i <= uc.opts.RetryCount; i++ {
		err := uc.sink.WriteBatch(ctx, batch)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.metrics.SinkWriteErrors.Inc()
		if errors.Is(err, domain.ErrPermanent) || i == uc.opts.RetryCount {
			break
		}
		uc.logger.Warn("failed to write batch to sink, retrying...", "attempt", i+1, "error", err)
		select {
		case <-time.After(uc.opts.RetryBackoff):
			// continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	uc.logger.Error("failed to write batch to sink after retries", "count", len(batch), "error", lastErr)
	return lastErr
}

func isBlank(line []byte) bool {
	for _, b := range line {
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
