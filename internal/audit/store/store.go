package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/audit"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

// Store is append-only: it never updates or deletes entries.
type Store struct {
	db database.DBTX
}

func New(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e *audit.Entry) error {
	metadata := []byte("{}")

	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}

		metadata = b
	}

	query := `
		INSERT INTO audit_entries (proposal_id, context, previous_status, new_status, actor_id, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		e.ProposalID,
		e.Context,
		e.PreviousStatus,
		e.NewStatus,
		e.ActorID,
		e.Reason,
		string(metadata),
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

func (s *Store) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*audit.Entry, error) {
	query := `
		SELECT id, proposal_id, context, previous_status, new_status, actor_id, reason, metadata, created_at
		FROM audit_entries
		WHERE proposal_id = $1
		ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry

	for rows.Next() {
		var (
			e          audit.Entry
			prev, next string
			metadata   []byte
		)

		if err := rows.Scan(&e.ID, &e.ProposalID, &e.Context, &prev, &next, &e.ActorID, &e.Reason, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.PreviousStatus = status.Status(prev)
		e.NewStatus = status.Status(next)

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding audit metadata: %w", err)
			}
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return entries, nil
}
