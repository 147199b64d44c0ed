package transition

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

var ErrInvalidRequest = errors.New("invalid transition request")

// SystemActor is recorded when a request carries no actor.
const SystemActor = "system"

// Request asks for a proposal to move to NewStatus within Context.
type Request struct {
	ProposalID uuid.UUID        `json:"proposal_id" validate:"required"`
	NewStatus  status.Status    `json:"new_status" validate:"required,proposal_status"`
	Context    proposal.Context `json:"context" validate:"required,status_context"`
	ActorID    string           `json:"actor_id" validate:"max=128"`
	Reason     string           `json:"reason" validate:"max=2000"`
	Metadata   map[string]any   `json:"metadata"`
}

// Result describes the outcome of a Request. Changed is false when the
// proposal was already in NewStatus and the legacy column was left alone.
type Result struct {
	Success        bool             `json:"success"`
	ProposalID     uuid.UUID        `json:"proposal_id"`
	PreviousStatus status.Status    `json:"previous_status"`
	NewStatus      status.Status    `json:"new_status"`
	Context        proposal.Context `json:"context"`
	ActorID        string           `json:"actor_id"`
	Timestamp      time.Time        `json:"timestamp"`
	Changed        bool             `json:"changed"`
	AuditEntryID   int64            `json:"audit_entry_id,omitempty"`
	Error          string           `json:"error,omitempty"`
	DispatchError  string           `json:"dispatch_error,omitempty"`
}

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("proposal_status", func(fl validator.FieldLevel) bool {
		st, ok := fl.Field().Interface().(status.Status)
		return ok && st.Valid()
	})

	_ = v.RegisterValidation("status_context", func(fl validator.FieldLevel) bool {
		c, ok := fl.Field().Interface().(proposal.Context)
		if !ok {
			return false
		}

		_, err := proposal.ParseContext(string(c))

		return err == nil
	})

	return v
}

func validateRequest(v *validator.Validate, req Request) error {
	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidRequest, fe.Field(), fe.Tag())
		}

		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return nil
}
