package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/szmessage/internal/domain"
	"github.com/V4T54L/szmessage/pkg/typedef"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const messagesTableName = "senzing_messages"

// schema keeps the original timestamp text next to the TIMESTAMPTZ column,
// which normalises the offset away.
const schema = `CREATE TABLE IF NOT EXISTS ` + messagesTableName + ` (
	ingest_id   UUID PRIMARY KEY,
	message_id  TEXT NOT NULL,
	level       TEXT NOT NULL,
	time        TIMESTAMPTZ NOT NULL,
	time_text   TEXT NOT NULL,
	duration    INTEGER NOT NULL,
	location    TEXT NOT NULL,
	status      TEXT NOT NULL,
	text        TEXT NOT NULL,
	details     JSONB NOT NULL,
	errors      TEXT[] NOT NULL,
	ingested_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var messageColumns = []string{
	"ingest_id", "message_id", "level", "time", "time_text", "duration",
	"location", "status", "text", "details", "errors",
}

// MessageRepository stores accepted messages in PostgreSQL. Message ids are
// not unique across producers, so every row gets its own ingest id.
type MessageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgreSQL message repository.
func NewMessageRepository(db *sql.DB, logger *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, logger: logger.With("component", "postgres_repository")}
}

// EnsureSchema creates the messages table if it does not exist.
func (r *MessageRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create %s table: %w", messagesTableName, err)
	}
	return nil
}

// WriteBatch writes the messages in one transaction using the COPY protocol.
func (r *MessageRepository) WriteBatch(ctx context.Context, msgs []typedef.SenzingMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(messagesTableName, messageColumns...))
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		row, err := messageRow(uuid.NewString(), msg)
		if err != nil {
			_ = stmt.Close()
			return domain.Permanent(err)
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			// Close the statement to avoid connection issues
			_ = stmt.Close()
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	r.logger.Debug("Wrote message batch", "count", len(msgs))
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *MessageRepository) Close() error {
	return nil
}

// messageRow returns the COPY values for msg in messageColumns order.
// Details go over as text: COPY would send a []byte as bytea.
func messageRow(ingestID string, msg typedef.SenzingMessage) ([]interface{}, error) {
	details := msg.Details
	if details == nil {
		details = typedef.Details{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode details of message %s: %w", msg.ID, err)
	}
	errs := []string(msg.Errors)
	if errs == nil {
		errs = []string{}
	}
	return []interface{}{
		ingestID,
		msg.ID,
		string(msg.Level),
		msg.Time,
		msg.Time.Format(time.RFC3339Nano),
		msg.Duration,
		msg.Location,
		msg.Status,
		msg.Text,
		string(detailsJSON),
		pq.StringArray(errs),
	}, nil
}
