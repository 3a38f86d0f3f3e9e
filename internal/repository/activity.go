package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitrade/finance-backend/internal/domain"
)

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.ActivityEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity_log (
			id, action, collection, document_id, performed_by, changes, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Action, e.Collection, e.DocumentID, e.PerformedBy,
		nullableJSON(e.Changes), nullableJSON(e.Metadata), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListByDocument(ctx context.Context, collection string, documentID any) ([]domain.ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, collection, document_id, performed_by, changes, metadata, created_at
		FROM activity_log
		WHERE collection = $1 AND document_id = $2
		ORDER BY created_at`, collection, documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByDocument: %w", err)
	}
	defer rows.Close()

	var entries []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var changes, metadata *[]byte
		err := rows.Scan(&e.ID, &e.Action, &e.Collection, &e.DocumentID, &e.PerformedBy, &changes, &metadata, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ListByDocument: scan: %w", err)
		}
		if changes != nil {
			e.Changes = *changes
		}
		if metadata != nil {
			e.Metadata = *metadata
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByDocument: rows: %w", err)
	}
	return entries, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
