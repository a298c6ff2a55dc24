package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvoloshyn/pocket-money/internal/api/middleware"
	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/ledger"
)

// idempotencyKeyHeader carries the client-chosen key that makes retried
// money operations safe.
const idempotencyKeyHeader = "Idempotency-Key"

// TransactionsHandler handles the money-movement endpoints.
type TransactionsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewTransactionsHandler creates a transactions handler.
func NewTransactionsHandler(svc *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: svc, log: log}
}

type moneyRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PIN    string          `json:"pin"`
}

// Deposit handles POST /api/transactions/deposit
func (h *TransactionsHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req moneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.ledger.Deposit(r.Context(), auth.IdentityFromContext(r.Context()),
		req.Amount, req.PIN, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, receipt)
}

// Withdraw handles POST /api/transactions/withdraw
func (h *TransactionsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req moneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.ledger.Withdraw(r.Context(), auth.IdentityFromContext(r.Context()),
		req.Amount, req.PIN, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, receipt)
}

// Transfer handles POST /api/transactions/transfer
func (h *TransactionsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverPublicCode string          `json:"receiver_public_code"`
		Amount             decimal.Decimal `json:"amount"`
		PIN                string          `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.ledger.Transfer(r.Context(), auth.IdentityFromContext(r.Context()),
		req.ReceiverPublicCode, req.Amount, req.PIN, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, receipt)
}

// KeyStatus handles GET /api/transactions/key-status?key=K. It lets a
// client that lost a response find out whether its operation completed
// before retrying with a fresh key.
func (h *TransactionsHandler) KeyStatus(w http.ResponseWriter, r *http.Request) {
	if auth.IdentityFromContext(r.Context()) == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		middleware.WriteError(w, http.StatusBadRequest, "key is required")
		return
	}

	used, err := h.ledger.Guard().IsClaimed(r.Context(), key)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"key":  key,
		"used": used,
	})
}

// History handles GET /api/transactions?page=N
func (h *TransactionsHandler) History(w http.ResponseWriter, r *http.Request) {
	page := 0
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid page number")
			return
		}
		page = parsed
	}

	history, err := h.ledger.History(r.Context(), auth.IdentityFromContext(r.Context()), page)
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, history)
}
