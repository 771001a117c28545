package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"salegate/pkg/platform/audit"
	txcontext "salegate/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the
// outbox worker. Kafka is the source of truth for audit events.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names
// match audit.Event for deserialization by downstream consumers.
type outboxPayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	Action    string `json:"Action"`
	Actor     string `json:"Actor,omitempty"`
	Target    string `json:"Target,omitempty"`
	Quantity  string `json:"Quantity,omitempty"`
	Count     int    `json:"Count,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
	ClientIP  string `json:"ClientIP,omitempty"`
	UserAgent string `json:"UserAgent,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Actor:     event.Actor.String(),
		Target:    event.Target.String(),
		Quantity:  event.Quantity,
		Count:     event.Count,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		UserAgent: event.UserAgent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const q = `
		INSERT INTO audit_outbox (id, category, action, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.execer(ctx).ExecContext(ctx, q,
		eventID, string(event.Category), event.Action, event.Actor.String(), body, event.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("append audit outbox event: %w", err)
	}
	return nil
}

// Migrate creates the outbox table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS audit_outbox (
			id UUID PRIMARY KEY,
			category TEXT NOT NULL,
			action TEXT NOT NULL,
			actor TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			published_at TIMESTAMPTZ
		)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate audit outbox: %w", err)
	}
	return nil
}

// PendingRow is an unpublished outbox entry.
type PendingRow struct {
	ID      uuid.UUID
	Payload []byte
}

// Pending returns up to limit unpublished events, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]PendingRow, error) {
	const q = `
		SELECT id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox events: %w", err)
	}
	defer rows.Close()

	var out []PendingRow
	for rows.Next() {
		var row PendingRow
		if err := rows.Scan(&row.ID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps the given events as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := s.db.ExecContext(ctx, q, at.UTC(), pq.Array(idsToStrings(ids))); err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}

func idsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return out
}
