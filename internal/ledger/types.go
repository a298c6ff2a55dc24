package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryPageSize is the fixed page size for transaction history.
const HistoryPageSize = 10

// Receipt confirms a completed money movement.
type Receipt struct {
	ID     uuid.UUID       `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// HistoryEntry is one transaction in an identity's history. Owner is set
// for deposits and withdrawals; From and To for transfers.
type HistoryEntry struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"transaction_type"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`

	Owner string `json:"owner,omitempty"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// HistoryPage is one page of transaction history, newest first.
type HistoryPage struct {
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Entries    []*HistoryEntry `json:"entries"`
}

// AccountSummary is the outward account representation.
type AccountSummary struct {
	ID         uuid.UUID       `json:"id"`
	Balance    decimal.Decimal `json:"balance"`
	FullName   string          `json:"full_name"`
	PublicCode string          `json:"public_code"`
	CreatedAt  time.Time       `json:"created_at"`
}

// GoalSummary is the outward savings goal representation.
type GoalSummary struct {
	ID        uuid.UUID       `json:"id"`
	Saved     decimal.Decimal `json:"saved"`
	Goal      decimal.Decimal `json:"goal"`
	GoalName  string          `json:"goal_name"`
	Broken    bool            `json:"broken"`
	BrokenAt  *time.Time      `json:"broken_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
