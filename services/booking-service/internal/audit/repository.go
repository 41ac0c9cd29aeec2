package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/llcportal/consultations/libs/db"
)

type Entry struct {
	Action   string
	ActorID  string
	TargetID string
	Details  map[string]any
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordTx writes e inside the caller's transaction.
func (r *Repository) RecordTx(ctx context.Context, tx pgx.Tx, e Entry) error {
	raw, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_events (event_type, actor_id, target_id, metadata)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4)
	`, e.Action, e.ActorID, e.TargetID, raw)
	return err
}

type Event struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	ActorID   string          `json:"actor_id,omitempty"`
	TargetID  string          `json:"target_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt string          `json:"created_at"`
}

// ListForTarget returns the newest audit events for one booking.
func (r *Repository) ListForTarget(ctx context.Context, targetID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, COALESCE(actor_id, ''), COALESCE(target_id, ''), metadata, created_at
		FROM audit_events
		WHERE target_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.EventType, &e.ActorID, &e.TargetID, &e.Metadata, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}
