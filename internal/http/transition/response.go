package transition

import (
	"time"

	"github.com/MrJamesThe3rd/proposalflow/internal/audit"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
)

type historyEntryResponse struct {
	ID             int64          `json:"id"`
	Context        string         `json:"context"`
	PreviousStatus status.Status  `json:"previous_status"`
	NewStatus      status.Status  `json:"new_status"`
	ActorID        string         `json:"actor_id"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func toHistoryResponse(entries []*audit.Entry) []historyEntryResponse {
	resp := make([]historyEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = historyEntryResponse{
			ID:             e.ID,
			Context:        e.Context,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			ActorID:        e.ActorID,
			Reason:         e.Reason,
			Metadata:       e.Metadata,
			CreatedAt:      e.CreatedAt,
		}
	}

	return resp
}
