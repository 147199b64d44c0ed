// Package consistency reports proposals whose legacy status has drifted from
// their contextual status records. It never writes.
package consistency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

// Drift is a proposal whose most recently updated contextual record disagrees
// with the legacy column.
type Drift struct {
	ProposalID       uuid.UUID     `json:"proposal_id"`
	LegacyStatus     status.Status `json:"legacy_status"`
	ContextualStatus status.Status `json:"contextual_status"`
	Context          string        `json:"context"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type Report struct {
	CheckedAt    time.Time   `json:"checked_at"`
	Total        int         `json:"total"`
	Consistent   int         `json:"consistent"`
	Inconsistent []Drift     `json:"inconsistent"`
	Orphaned     []uuid.UUID `json:"orphaned"`
}

func (r *Report) HasDrift() bool {
	return len(r.Inconsistent) > 0 || len(r.Orphaned) > 0
}

type Observer interface {
	ObserveDrift(inconsistent, orphaned int)
}

type Checker struct {
	db       database.DBTX
	observer Observer
	now      func() time.Time
}

func NewChecker(db database.DBTX, observer Observer) *Checker {
	return &Checker{db: db, observer: observer, now: time.Now}
}

type row struct {
	id         uuid.UUID
	legacy     string
	context    *string
	contextual *string
	updatedAt  *time.Time
}

// Check compares every live proposal with its latest contextual record.
// Proposals without any contextual record are reported as orphaned.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	query := `
		SELECT p.id, p.status, cs.context, cs.status, cs.updated_at
		FROM proposals p
		LEFT JOIN contextual_statuses cs ON cs.proposal_id = p.id
		WHERE p.deleted_at IS NULL
		ORDER BY p.id ASC, cs.updated_at DESC`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying statuses: %w", err)
	}
	defer rows.Close()

	report := &Report{CheckedAt: c.now().UTC(), Inconsistent: []Drift{}, Orphaned: []uuid.UUID{}}

	var last uuid.UUID

	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.legacy, &r.context, &r.contextual, &r.updatedAt); err != nil {
			return nil, fmt.Errorf("scanning statuses: %w", err)
		}

		// Rows after the first per proposal are older contextual records.
		if r.id == last {
			continue
		}

		last = r.id
		report.Total++

		switch {
		case r.contextual == nil:
			report.Orphaned = append(report.Orphaned, r.id)
		case *r.contextual != r.legacy:
			report.Inconsistent = append(report.Inconsistent, Drift{
				ProposalID:       r.id,
				LegacyStatus:     status.Status(r.legacy),
				ContextualStatus: status.Status(*r.contextual),
				Context:          *r.context,
				UpdatedAt:        *r.updatedAt,
			})
		default:
			report.Consistent++
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statuses: %w", err)
	}

	if c.observer != nil {
		c.observer.ObserveDrift(len(report.Inconsistent), len(report.Orphaned))
	}

	return report, nil
}
