package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/pkg/typedef"
)

func TestMessageRepository_WriteBatch(t *testing.T) {
	var out bytes.Buffer
	repo := NewMessageRepository(&out, nil)

	msgs := []typedef.SenzingMessage{
		{ID: "1", Level: typedef.LevelInfo, Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Text: "<b>first</b>"},
		{ID: "2", Level: typedef.LevelDebug, Time: time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), Text: "second"},
	}
	if err := repo.WriteBatch(context.Background(), msgs); err != nil {
		t.Fatalf("WriteBatch() returned an unexpected error: %v", err)
	}

	scanner := bufio.NewScanner(&out)
	var ids []string
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), `<`) {
			t.Errorf("expected HTML characters to be written unescaped: %s", scanner.Text())
		}
		msg, err := typedef.Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("output line does not decode: %v", err)
		}
		ids = append(ids, msg.ID)
	}
	if strings.Join(ids, ",") != "1,2" {
		t.Errorf("expected ids 1,2 in order, got %v", ids)
	}
}

func TestMessageRepository_Reject(t *testing.T) {
	var out, rejects bytes.Buffer
	repo := NewMessageRepository(&out, &rejects)

	raw := []byte(`{"id":1}`)
	_, decodeErr := typedef.Decode(raw)
	rejection := domain.NewRejection("-", 3, raw, decodeErr)
	if err := repo.Reject(context.Background(), []domain.Rejection{rejection}); err != nil {
		t.Fatalf("Reject() returned an unexpected error: %v", err)
	}

	var got domain.Rejection
	if err := json.Unmarshal(rejects.Bytes(), &got); err != nil {
		t.Fatalf("rejection output is not JSON: %v", err)
	}
	if got.Line != 3 || got.Raw != string(raw) || got.Kind != rejection.Kind {
		t.Errorf("unexpected rejection: %+v", got)
	}
	if out.Len() != 0 {
		t.Errorf("expected no message output, got %q", out.String())
	}
}

func TestMessageRepository_RejectWithoutWriter(t *testing.T) {
	repo := NewMessageRepository(&bytes.Buffer{}, nil)
	if err := repo.Reject(context.Background(), []domain.Rejection{{Kind: "malformed_json"}}); err != nil {
		t.Errorf("expected rejections to be dropped silently, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestMessageRepository_WriteError(t *testing.T) {
	repo := NewMessageRepository(failingWriter{}, nil)
	err := repo.WriteBatch(context.Background(), []typedef.SenzingMessage{{ID: "1"}})
	if err == nil {
		t.Fatal("expected the write error to surface")
	}
}

func TestMessageRepository_EncodeFailureWritesNothing(t *testing.T) {
	var out bytes.Buffer
	repo := NewMessageRepository(&out, nil)

	good := typedef.SenzingMessage{ID: "good", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	bad := good
	bad.ID = "bad"
	bad.Details = typedef.Details{{Key: "K", ValueRaw: json.RawMessage(`{not json`)}}

	for attempt := 0; attempt < 3; attempt++ {
		err := repo.WriteBatch(context.Background(), []typedef.SenzingMessage{good, bad})
		if !errors.Is(err, domain.ErrPermanent) {
			t.Fatalf("attempt %d: expected a permanent error, got %v", attempt, err)
		}
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close() returned an unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output from failed batches, got %q", out.String())
	}
}

func TestMessageRepository_WriteErrorOnLargeBatch(t *testing.T) {
	repo := NewMessageRepository(failingWriter{}, nil)
	// Larger than the bufio buffer, so the error comes from Write, not Flush.
	msg := typedef.SenzingMessage{ID: "big", Text: strings.Repeat("x", 8192)}
	err := repo.WriteBatch(context.Background(), []typedef.SenzingMessage{msg})
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("expected the write error to surface, got %v", err)
	}
}
