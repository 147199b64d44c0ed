package proposal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/proposalflow/internal/http/auth"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/transition"
)

type Handler struct {
	svc         *proposal.Service
	transitions *transition.Service
}

func NewHandler(svc *proposal.Service, transitions *transition.Service) *Handler {
	return &Handler{svc: svc, transitions: transitions}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/statuses", h.listStatuses)
	r.Get("/{id}/statuses/{context}", h.statusByContext)
	r.Get("/{id}/notes", h.notes)
}

type createProposalRequest struct {
	CustomerName     string          `json:"customer_name"`
	CustomerDocument string          `json:"customer_document"`
	Amount           decimal.Decimal `json:"amount"`
	TermMonths       int             `json:"term_months"`
	MonthlyRate      decimal.Decimal `json:"monthly_rate"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.transitions.Open(r.Context(), transition.OpenParams{
		CustomerName:     req.CustomerName,
		CustomerDocument: req.CustomerDocument,
		Amount:           req.Amount,
		TermMonths:       req.TermMonths,
		MonthlyRate:      req.MonthlyRate,
		ActorID:          auth.Actor(r.Context()),
	})
	if err != nil {
		if errors.Is(err, transition.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		slog.Error("failed to open proposal", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listStatuses(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	records, err := h.svc.ContextualStatuses(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]contextualStatusResponse, len(records))
	for i, cs := range records {
		resp[i] = toContextualResponse(cs)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) statusByContext(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	c, err := proposal.ParseContext(chi.URLParam(r, "context"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := h.svc.StatusByContext(r.Context(), id, c)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusByContextResponse{ProposalID: id, Context: c, Status: st})
}

func (h *Handler) notes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	notes, err := h.svc.Notes(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]noteResponse, len(notes))
	for i, n := range notes {
		resp[i] = toNoteResponse(n)
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, proposal.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	slog.Error("request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
