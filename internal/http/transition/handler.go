package transition

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/proposalflow/internal/http/auth"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/transition"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
)

type Handler struct {
	svc *transition.Service
}

func NewHandler(svc *transition.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts under /proposals.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/{id}/transitions", h.apply)
	r.Get("/{id}/transitions", h.possible)
	r.Get("/{id}/history", h.history)
}

// StatusRoutes mounts under /statuses.
func (h *Handler) StatusRoutes(r chi.Router) {
	r.Get("/", h.graph)
}

type transitionRequest struct {
	NewStatus status.Status    `json:"new_status"`
	Context   proposal.Context `json:"context"`
	ActorID   string           `json:"actor_id"`
	Reason    string           `json:"reason"`
	Metadata  map[string]any   `json:"metadata"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor := req.ActorID
	if a := auth.Actor(r.Context()); a != "" {
		actor = a
	}

	res, err := h.svc.Transition(r.Context(), transition.Request{
		ProposalID: id,
		NewStatus:  req.NewStatus,
		Context:    req.Context,
		ActorID:    actor,
		Reason:     req.Reason,
		Metadata:   req.Metadata,
	})

	code := http.StatusOK
	if err != nil {
		code = statusCode(err)
		if code == http.StatusInternalServerError {
			slog.Error("transition failed", "proposal_id", id, "error", err)
			res.Error = "internal error"
		}
	}

	writeJSON(w, code, res)
}

type possibleResponse struct {
	Current  status.Status   `json:"current"`
	Next     []status.Status `json:"next"`
	Terminal bool            `json:"terminal"`
}

func (h *Handler) possible(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	current, next, err := h.svc.PossibleTransitions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if next == nil {
		next = []status.Status{}
	}

	writeJSON(w, http.StatusOK, possibleResponse{Current: current, Next: next, Terminal: len(next) == 0})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponse(entries))
}

type graphResponse struct {
	Statuses    []status.Status                   `json:"statuses"`
	Terminal    []status.Status                   `json:"terminal"`
	Transitions map[status.Status][]status.Status `json:"transitions"`
}

func (h *Handler) graph(w http.ResponseWriter, _ *http.Request) {
	g := h.svc.Graph()

	resp := graphResponse{
		Statuses:    g.Statuses(),
		Terminal:    g.TerminalStatuses(),
		Transitions: make(map[status.Status][]status.Status),
	}

	for _, st := range resp.Statuses {
		resp.Transitions[st] = g.Successors(st)
	}

	writeJSON(w, http.StatusOK, resp)
}

func statusCode(err error) int {
	var invalid *status.InvalidTransitionError

	switch {
	case errors.Is(err, proposal.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transition.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, uow.ErrTransactionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)

	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}

	http.Error(w, msg, code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
