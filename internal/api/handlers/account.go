package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/api/middleware"
	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/ledger"
)

// AccountHandler handles account read endpoints.
type AccountHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewAccountHandler creates an account handler.
func NewAccountHandler(svc *ledger.Service, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{ledger: svc, log: log}
}

// GetAccount handles GET /api/account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.AccountDetail(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		middleware.WriteDomainError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}
