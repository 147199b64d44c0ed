package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

// Store implements proposal.Repository over a *sql.DB or a *sql.Tx.
type Store struct {
	db      database.DBTX
	dialect database.Dialect
}

func New(db database.DBTX, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectProposalColumns = `
	id, status, customer_name, customer_document, amount, term_months, monthly_rate,
	document_generated_at, signed_at, payment_authorized_at, settled_at,
	created_at, updated_at, deleted_at
`

func scanProposal(s scanner) (*proposal.Proposal, error) {
	var p proposal.Proposal

	var statusStr string

	if err := s.Scan(
		&p.ID, &statusStr, &p.CustomerName, &p.CustomerDocument, &p.Amount, &p.TermMonths, &p.MonthlyRate,
		&p.DocumentGeneratedAt, &p.SignedAt, &p.PaymentAuthorizedAt, &p.SettledAt,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	); err != nil {
		return nil, err
	}

	st, err := status.Parse(statusStr)
	if err != nil {
		return nil, fmt.Errorf("proposal %s: %w", p.ID, err)
	}

	p.Status = st

	return &p, nil
}

func (s *Store) CreateProposal(ctx context.Context, p *proposal.Proposal) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO proposals (id, status, customer_name, customer_document, amount, term_months, monthly_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.Status,
		p.CustomerName,
		p.CustomerDocument,
		p.Amount,
		p.TermMonths,
		p.MonthlyRate,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating proposal: %w", err)
	}

	return nil
}

func (s *Store) GetProposal(ctx context.Context, id uuid.UUID) (*proposal.Proposal, error) {
	query := `SELECT ` + selectProposalColumns + `
		FROM proposals
		WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanProposal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, proposal.ErrNotFound
		}

		return nil, fmt.Errorf("getting proposal: %w", err)
	}

	return p, nil
}

func (s *Store) LockProposal(ctx context.Context, id uuid.UUID) (*proposal.Proposal, error) {
	query := `SELECT ` + selectProposalColumns + `
		FROM proposals
		WHERE id = $1 AND deleted_at IS NULL` + s.dialect.LockRow()

	p, err := scanProposal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, proposal.ErrNotFound
		}

		return nil, fmt.Errorf("locking proposal: %w", err)
	}

	return p, nil
}

// stampColumn is the timestamp column set when a proposal enters st, if any.
func stampColumn(st status.Status) string {
	switch st {
	case status.DocumentGenerated:
		return "document_generated_at"
	case status.SignatureCompleted:
		return "signed_at"
	case status.PaymentAuthorized:
		return "payment_authorized_at"
	case status.Settled:
		return "settled_at"
	default:
		return ""
	}
}

func (s *Store) UpdateStatus(ctx context.Context, upd proposal.StatusUpdate) error {
	query := `UPDATE proposals SET status = $1, updated_at = $2`
	if col := stampColumn(upd.Status); col != "" {
		query += `, ` + col + ` = $2`
	}

	query += ` WHERE id = $3 AND deleted_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, upd.Status, upd.At, upd.ID)
	if err != nil {
		return fmt.Errorf("updating proposal status: %w", err)
	}

	return expectOneRow(res)
}

func (s *Store) DeleteProposal(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE proposals SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("deleting proposal: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if rows == 0 {
		return proposal.ErrNotFound
	}

	return nil
}

// Contextual and note reads join proposals so soft-deleted proposals expose nothing.
const selectContextualColumns = `cs.proposal_id, cs.context, cs.status, cs.previous_status, cs.updated_by, cs.updated_at, cs.metadata`

func scanContextual(s scanner) (*proposal.ContextualStatus, error) {
	var cs proposal.ContextualStatus

	var ctxStr, statusStr, prevStr string

	var metadata []byte

	if err := s.Scan(&cs.ProposalID, &ctxStr, &statusStr, &prevStr, &cs.UpdatedBy, &cs.UpdatedAt, &metadata); err != nil {
		return nil, err
	}

	cs.Context = proposal.Context(ctxStr)
	cs.Status = status.Status(statusStr)
	cs.PreviousStatus = status.Status(prevStr)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &cs.Metadata); err != nil {
			return nil, fmt.Errorf("decoding contextual metadata: %w", err)
		}
	}

	return &cs, nil
}

// UpsertContextualStatus inserts the (proposal, context) record or, when one
// exists, moves its current status into previous_status. On return cs carries
// the persisted previous status.
func (s *Store) UpsertContextualStatus(ctx context.Context, cs *proposal.ContextualStatus) error {
	metadata, err := marshalMetadata(cs.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO contextual_statuses (proposal_id, context, status, previous_status, updated_by, updated_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (proposal_id, context) DO UPDATE SET
			previous_status = contextual_statuses.status,
			status = excluded.status,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at,
			metadata = excluded.metadata
		RETURNING previous_status
	`

	var prev string

	err = s.db.QueryRowContext(ctx, query,
		cs.ProposalID,
		cs.Context,
		cs.Status,
		cs.PreviousStatus,
		cs.UpdatedBy,
		cs.UpdatedAt,
		metadata,
	).Scan(&prev)
	if err != nil {
		return fmt.Errorf("upserting contextual status: %w", err)
	}

	cs.PreviousStatus = status.Status(prev)

	return nil
}

func (s *Store) GetContextualStatus(ctx context.Context, id uuid.UUID, c proposal.Context) (*proposal.ContextualStatus, error) {
	query := `SELECT ` + selectContextualColumns + `
		FROM contextual_statuses cs
		JOIN proposals p ON p.id = cs.proposal_id AND p.deleted_at IS NULL
		WHERE cs.proposal_id = $1 AND cs.context = $2`

	cs, err := scanContextual(s.db.QueryRowContext(ctx, query, id, c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, proposal.ErrNotFound
		}

		return nil, fmt.Errorf("getting contextual status: %w", err)
	}

	return cs, nil
}

func (s *Store) ListContextualStatuses(ctx context.Context, id uuid.UUID) ([]*proposal.ContextualStatus, error) {
	query := `SELECT ` + selectContextualColumns + `
		FROM contextual_statuses cs
		JOIN proposals p ON p.id = cs.proposal_id AND p.deleted_at IS NULL
		WHERE cs.proposal_id = $1
		ORDER BY cs.updated_at ASC, cs.context ASC`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("listing contextual statuses: %w", err)
	}
	defer rows.Close()

	var out []*proposal.ContextualStatus

	for rows.Next() {
		cs, err := scanContextual(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contextual status: %w", err)
		}

		out = append(out, cs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contextual statuses: %w", err)
	}

	return out, nil
}

func (s *Store) CreateNote(ctx context.Context, n *proposal.Note) error {
	query := `
		INSERT INTO proposal_notes (proposal_id, author, body, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := s.db.QueryRowContext(ctx, query, n.ProposalID, n.Author, n.Body, n.CreatedAt).Scan(&n.ID); err != nil {
		return fmt.Errorf("creating note: %w", err)
	}

	return nil
}

func (s *Store) ListNotes(ctx context.Context, id uuid.UUID) ([]*proposal.Note, error) {
	query := `
		SELECT n.id, n.proposal_id, n.author, n.body, n.created_at
		FROM proposal_notes n
		JOIN proposals p ON p.id = n.proposal_id AND p.deleted_at IS NULL
		WHERE n.proposal_id = $1
		ORDER BY n.id ASC`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []*proposal.Note

	for rows.Next() {
		var n proposal.Note
		if err := rows.Scan(&n.ID, &n.ProposalID, &n.Author, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}

		notes = append(notes, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}

	return notes, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}

	return string(b), nil
}
