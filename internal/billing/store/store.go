package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/billing"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
)

type Store struct {
	db database.DBTX
}

func New(db database.DBTX) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectInstrumentColumns = `id, proposal_id, installment, amount, due_date, status, paid_at, created_at`

func scanInstrument(s scanner) (*billing.Instrument, error) {
	var (
		in billing.Instrument
		st string
	)

	if err := s.Scan(&in.ID, &in.ProposalID, &in.Installment, &in.Amount, &in.DueDate, &st, &in.PaidAt, &in.CreatedAt); err != nil {
		return nil, err
	}

	in.Status = billing.Status(st)

	return &in, nil
}

func (s *Store) CreateInstruments(ctx context.Context, instruments []*billing.Instrument) error {
	query := `
		INSERT INTO billing_instruments (id, proposal_id, installment, amount, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, in := range instruments {
		if in.ID == uuid.Nil {
			in.ID = uuid.New()
		}

		if _, err := s.db.ExecContext(ctx, query,
			in.ID,
			in.ProposalID,
			in.Installment,
			in.Amount,
			in.DueDate,
			in.Status,
			in.CreatedAt,
		); err != nil {
			return fmt.Errorf("creating billing instrument %d: %w", in.Installment, err)
		}
	}

	return nil
}

func (s *Store) GetInstrument(ctx context.Context, id uuid.UUID) (*billing.Instrument, error) {
	query := `SELECT ` + selectInstrumentColumns + `
		FROM billing_instruments
		WHERE id = $1 AND deleted_at IS NULL`

	in, err := scanInstrument(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("getting billing instrument: %w", err)
	}

	return in, nil
}

func (s *Store) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*billing.Instrument, error) {
	query := `SELECT ` + selectInstrumentColumns + `
		FROM billing_instruments
		WHERE proposal_id = $1 AND deleted_at IS NULL
		ORDER BY installment ASC`

	rows, err := s.db.QueryContext(ctx, query, proposalID)
	if err != nil {
		return nil, fmt.Errorf("listing billing instruments: %w", err)
	}
	defer rows.Close()

	var out []*billing.Instrument

	for rows.Next() {
		in, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning billing instrument: %w", err)
		}

		out = append(out, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating billing instruments: %w", err)
	}

	return out, nil
}

func (s *Store) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE billing_instruments SET status = $1, paid_at = $2
		WHERE id = $3 AND deleted_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, billing.StatusPaid, at, id)
	if err != nil {
		return fmt.Errorf("marking billing instrument paid: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if rows == 0 {
		return billing.ErrNotFound
	}

	return nil
}
