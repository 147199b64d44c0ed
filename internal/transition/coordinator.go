package transition

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/proposalflow/internal/audit"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
)

// Coordinator writes a validated transition to every place that records it:
// the legacy status column, the contextual status record, the audit trail and,
// when a reason is given, a note. It must run inside a unit of work so the
// writes commit or roll back together.
type Coordinator struct {
	validator *status.Validator
	now       func() time.Time
}

func NewCoordinator(v *status.Validator, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}

	return &Coordinator{validator: v, now: now}
}

func (c *Coordinator) Validator() *status.Validator {
	return c.validator
}

// Apply moves the proposal to req.NewStatus.
//
// When the legacy status already equals the target, nothing is validated or
// written, unless the requested context has no record at that status yet; then
// only the contextual record is aligned and audited, so history can hold
// s -> s entries whose metadata carries context_sync.
func (c *Coordinator) Apply(ctx context.Context, repos *uow.Repositories, req Request) (*Result, error) {
	p, err := repos.Proposals.LockProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}

	actor := req.ActorID
	if actor == "" {
		actor = SystemActor
	}

	now := c.now().UTC()
	from := p.Status

	result := &Result{
		Success:        true,
		ProposalID:     p.ID,
		PreviousStatus: from,
		NewStatus:      req.NewStatus,
		Context:        req.Context,
		ActorID:        actor,
		Timestamp:      now,
	}

	if from == req.NewStatus {
		return c.alignContext(ctx, repos, req, result)
	}

	if err := c.validator.Check(from, req.NewStatus); err != nil {
		return nil, err
	}

	metadata := transitionMetadata(req.Metadata, from, req.NewStatus, now)

	if err := repos.Proposals.UpdateStatus(ctx, proposal.StatusUpdate{ID: p.ID, Status: req.NewStatus, At: now}); err != nil {
		return nil, err
	}

	if err := repos.Proposals.UpsertContextualStatus(ctx, &proposal.ContextualStatus{
		ProposalID:     p.ID,
		Context:        req.Context,
		Status:         req.NewStatus,
		PreviousStatus: from,
		UpdatedBy:      actor,
		UpdatedAt:      now,
		Metadata:       metadata,
	}); err != nil {
		return nil, err
	}

	entryID, err := c.record(ctx, repos, req, from, actor, metadata, now)
	if err != nil {
		return nil, err
	}

	result.Changed = true
	result.AuditEntryID = entryID

	return result, nil
}

func (c *Coordinator) alignContext(ctx context.Context, repos *uow.Repositories, req Request, result *Result) (*Result, error) {
	cs, err := repos.Proposals.GetContextualStatus(ctx, req.ProposalID, req.Context)
	switch {
	case err == nil && cs.Status == req.NewStatus:
		return result, nil
	case err != nil && !errors.Is(err, proposal.ErrNotFound):
		return nil, err
	}

	metadata := transitionMetadata(req.Metadata, req.NewStatus, req.NewStatus, result.Timestamp)
	metadata["context_sync"] = true

	if err := repos.Proposals.UpsertContextualStatus(ctx, &proposal.ContextualStatus{
		ProposalID:     req.ProposalID,
		Context:        req.Context,
		Status:         req.NewStatus,
		PreviousStatus: req.NewStatus,
		UpdatedBy:      result.ActorID,
		UpdatedAt:      result.Timestamp,
		Metadata:       metadata,
	}); err != nil {
		return nil, err
	}

	entryID, err := c.record(ctx, repos, req, req.NewStatus, result.ActorID, metadata, result.Timestamp)
	if err != nil {
		return nil, err
	}

	result.AuditEntryID = entryID

	return result, nil
}

func (c *Coordinator) record(
	ctx context.Context,
	repos *uow.Repositories,
	req Request,
	from status.Status,
	actor string,
	metadata map[string]any,
	now time.Time,
) (int64, error) {
	reason := req.Reason
	if reason == "" {
		reason = fmt.Sprintf("fsm transition: %s -> %s", from, req.NewStatus)
	}

	entry := &audit.Entry{
		ProposalID:     req.ProposalID,
		Context:        string(req.Context),
		PreviousStatus: from,
		NewStatus:      req.NewStatus,
		ActorID:        actor,
		Reason:         reason,
		Metadata:       metadata,
		CreatedAt:      now,
	}
	if err := repos.Audit.Record(ctx, entry); err != nil {
		return 0, err
	}

	if req.Reason != "" {
		note := &proposal.Note{
			ProposalID: req.ProposalID,
			Author:     actor,
			Body:       fmt.Sprintf("[%s] %s", strings.ToUpper(string(req.Context)), req.Reason),
			CreatedAt:  now,
		}
		if err := repos.Proposals.CreateNote(ctx, note); err != nil {
			return 0, err
		}
	}

	return entry.ID, nil
}

// transitionMetadata copies the caller's metadata and stamps the graph edge used.
func transitionMetadata(in map[string]any, from, to status.Status, at time.Time) map[string]any {
	out := make(map[string]any, len(in)+1)
	maps.Copy(out, in)

	out["fsm_transition"] = map[string]any{
		"from":         string(from),
		"to":           string(to),
		"timestamp":    at.Format(time.RFC3339Nano),
		"validated_by": "fsm",
	}

	return out
}
