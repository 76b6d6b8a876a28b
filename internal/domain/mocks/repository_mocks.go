package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/pkg/typedef"
)

// MockMessageSink is a mock implementation of domain.MessageSink and
// domain.RejectSink for testing.
type MockMessageSink struct {
	mu         sync.Mutex
	Written    []typedef.SenzingMessage
	Batches    int
	Attempts   int
	Rejections []domain.Rejection
	Closed     bool

	// WriteErr is returned by the first FailWrites calls, or by every call
	// when FailWrites is zero.
	WriteErr   error
	FailWrites int
	RejectErr  error
	CloseErr   error
}

func (m *MockMessageSink) WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts++
	if m.WriteErr != nil && (m.FailWrites == 0 || m.Attempts <= m.FailWrites) {
		return m.WriteErr
	}
	m.Batches++
	m.Written = append(m.Written, msgs...)
	return nil
}

func (m *MockMessageSink) Reject(ctx context.Context, rejections []domain.Rejection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RejectErr != nil {
		return m.RejectErr
	}
	m.Rejections = append(m.Rejections, rejections...)
	return nil
}

func (m *MockMessageSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseErr
}

// MockWALRepository is an in-memory domain.WALRepository.
type MockWALRepository struct {
	mu        sync.Mutex
	Messages  []typedef.SenzingMessage
	Truncated int
	WriteErr  error
}

func (m *MockWALRepository) Write(ctx context.Context, msg typedef.SenzingMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *MockWALRepository) WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWALRepository) Replay(ctx context.Context, handler func(msg typedef.SenzingMessage) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if err := handler(msg); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockWALRepository) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
	m.Truncated++
	return nil
}
