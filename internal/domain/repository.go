package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

// ErrPermanent marks sink errors that would fail the same way on every
// attempt, such as an unencodable message or a full WAL.
var ErrPermanent = errors.New("permanent sink error")

// Permanent wraps err so that errors.Is(err, ErrPermanent) holds.
func Permanent(err error) error {
	if err == nil || errors.Is(err, ErrPermanent) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// MessageSink receives decoded messages in input order.
type MessageSink interface {
	// WriteBatch stores the messages. Implementations must not retain the slice.
	WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error

	// Close flushes anything still buffered.
	Close() error
}

// RejectSink receives lines that failed to decode.
type RejectSink interface {
	Reject(ctx context.Context, rejections []Rejection) error
}

// WALRepository defines the interface for the Write-Ahead Log failover mechanism.
type WALRepository interface {
	// Write appends a message to the local WAL file.
	Write(ctx context.Context, msg typedef.SenzingMessage) error

	// WriteBatch appends all messages or none of them.
	WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error

	// Replay reads messages from the WAL in write order and sends them to handler.
	Replay(ctx context.Context, handler func(msg typedef.SenzingMessage) error) error

	// Truncate removes WAL segments that have been successfully replayed.
	Truncate(ctx context.Context) error
}
