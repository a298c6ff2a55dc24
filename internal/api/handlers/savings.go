package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvoloshyn/pocket-money/internal/api/middleware"
	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/ledger"
)

// SavingsHandler handles the savings goal endpoints.
type SavingsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewSavingsHandler creates a savings handler.
func NewSavingsHandler(svc *ledger.Service, log zerolog.Logger) *SavingsHandler {
	return &SavingsHandler{ledger: svc, log: log}
}

// Create handles POST /api/savings
func (h *SavingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal decimal.Decimal `json:"goal"`
		Name string          `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.ledger.CreateGoal(r.Context(), auth.IdentityFromContext(r.Context()), req.Goal, req.Name)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, summary)
}

// List handles GET /api/savings?active=true
func (h *SavingsHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	summaries, err := h.ledger.ListGoals(r.Context(), auth.IdentityFromContext(r.Context()), activeOnly)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"goals": summaries,
		"count": len(summaries),
	})
}

// Deposit handles POST /api/savings/{id}/deposit
func (h *SavingsHandler) Deposit(w http.ResponseWriter, r *http.Request, goalID string) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		PIN    string          `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.ledger.FundGoal(r.Context(), auth.IdentityFromContext(r.Context()), goalID, req.Amount, req.PIN)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// Break handles POST /api/savings/{id}/break
func (h *SavingsHandler) Break(w http.ResponseWriter, r *http.Request, goalID string) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.ledger.BreakGoal(r.Context(), auth.IdentityFromContext(r.Context()), goalID, req.PIN)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}
