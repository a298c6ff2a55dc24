package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is an identity's primary spendable balance. Balance never goes
// negative; every mutation is validated before commit. Version is the
// optimistic-concurrency counter checked by the persistence boundary.
type Account struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	Balance decimal.Decimal `json:"balance"`
	Version int64           `json:"version"`

	CreatedAt time.Time `json:"created_at"`
}

// NewAccount creates a zero-balance account for owner. Created atomically
// with its owning identity at registration.
func NewAccount(owner uuid.UUID) *Account {
	return &Account{
		ID:        uuid.New(),
		OwnerID:   owner,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}

// Deposit adds amount to the balance. Fails with ErrInvalidAmount for
// non-positive or over-precise amounts.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw removes amount from the balance. Fails with ErrInvalidAmount or
// ErrInsufficientBalance; the balance invariant (>= 0) holds afterwards.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// HasEnough reports whether the balance covers amount.
func (a *Account) HasEnough(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
