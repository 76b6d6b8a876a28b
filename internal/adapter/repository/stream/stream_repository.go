// Package stream writes accepted messages as newline-delimited JSON.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/pkg/typedef"
)

// MessageRepository writes each accepted message in canonical encoding, one
// per line. Rejections go to a separate writer, which may be nil.
type MessageRepository struct {
	mu      sync.Mutex
	out     *bufio.Writer
	rejects *json.Encoder
}

// NewMessageRepository creates a sink writing messages to out and
// rejections to rejects.
func NewMessageRepository(out io.Writer, rejects io.Writer) *MessageRepository {
	r := &MessageRepository{out: bufio.NewWriter(out)}
	if rejects != nil {
		r.rejects = json.NewEncoder(rejects)
		r.rejects.SetEscapeHTML(false)
	}
	return r
}

// WriteBatch writes the messages and flushes once per batch. The batch is
// encoded before anything is written, so an encode failure writes nothing.
func (r *MessageRepository) WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error {
	var buf bytes.Buffer
	for _, msg := range msgs {
		data, err := typedef.Encode(msg)
		if err != nil {
			return domain.Permanent(fmt.Errorf("failed to encode message %s: %w", msg.ID, err))
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.out.Write(buf.Bytes()); err != nil {
		return err
	}
	return r.out.Flush()
}

// Reject writes one JSON object per rejection.
func (r *MessageRepository) Reject(ctx context.Context, rejections []domain.Rejection) error {
	if r.rejects == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rejection := range rejections {
		if err := r.rejects.Encode(rejection); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered output.
func (r *MessageRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Flush()
}
