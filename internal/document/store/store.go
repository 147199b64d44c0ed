package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/document"
)

type Store struct {
	db database.DBTX
}

func New(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) CreateDocument(ctx context.Context, d *document.CreditDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	query := `
		INSERT INTO credit_documents (id, proposal_id, number, status, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.db.ExecContext(ctx, query, d.ID, d.ProposalID, d.Number, d.Status, d.StoragePath, d.CreatedAt); err != nil {
		return fmt.Errorf("creating credit document: %w", err)
	}

	return nil
}

func (s *Store) GetByProposal(ctx context.Context, proposalID uuid.UUID) (*document.CreditDocument, error) {
	query := `
		SELECT id, proposal_id, number, status, storage_path, sent_at, signed_at, created_at, deleted_at
		FROM credit_documents
		WHERE proposal_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		d  document.CreditDocument
		st string
	)

	err := s.db.QueryRowContext(ctx, query, proposalID).Scan(
		&d.ID, &d.ProposalID, &d.Number, &st, &d.StoragePath, &d.SentAt, &d.SignedAt, &d.CreatedAt, &d.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("getting credit document: %w", err)
	}

	d.Status = document.Status(st)

	return &d, nil
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, st document.Status, at time.Time) error {
	var query string

	switch st {
	case document.StatusSent:
		query = `UPDATE credit_documents SET status = $1, sent_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	case document.StatusSigned:
		query = `UPDATE credit_documents SET status = $1, signed_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	default:
		return fmt.Errorf("unsupported credit document status %q", st)
	}

	res, err := s.db.ExecContext(ctx, query, st, at, id)
	if err != nil {
		return fmt.Errorf("updating credit document: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if rows == 0 {
		return document.ErrNotFound
	}

	return nil
}
