package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitrade/finance-backend/internal/domain"
)

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue writes the event in the caller's transaction so the side effect
// commits or rolls back together with the payment.
func (r *OutboxRepository) Enqueue(ctx context.Context, tx *sql.Tx, e *domain.OutboxEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.EventType, []byte(e.Payload), e.Status, e.Attempts, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Enqueue: %w", err)
	}
	return nil
}

// ClaimPending picks up to limit pending events in creation order. Delivery
// is at-least-once: a competing worker may pick up the same row, which the
// receiving side must tolerate.
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_type, payload, status, attempts, last_attempt, created_at
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		var payload []byte
		err := rows.Scan(&e.ID, &e.EventType, &payload, &e.Status, &e.Attempts, &e.LastAttempt, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ClaimPending: scan: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending: rows: %w", err)
	}
	return events, nil
}

// MarkAttempt records a delivery attempt and its resulting status.
func (r *OutboxRepository) MarkAttempt(ctx context.Context, id uuid.UUID, status domain.OutboxStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events
		SET status = $1, attempts = attempts + 1, last_attempt = now()
		WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("MarkAttempt: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkAttempt: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkAttempt: %w", domain.ErrNotFound)
	}
	return nil
}
