package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SavingsGoal is a ring-fenced sub-balance owned by one identity, funded
// from and returned to the owner's Account. Once broken the goal is
// terminal: no further saved-amount mutation is permitted.
type SavingsGoal struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	Saved    decimal.Decimal `json:"saved"`
	Goal     decimal.Decimal `json:"goal"`
	GoalName string          `json:"goal_name"`

	Broken   bool       `json:"broken"`
	BrokenAt *time.Time `json:"broken_at,omitempty"`

	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
}

// NewSavingsGoal creates an unbroken goal with zero saved amount.
// Target and name validation happens in the ledger before persisting.
func NewSavingsGoal(owner uuid.UUID, goal decimal.Decimal, name string) *SavingsGoal {
	return &SavingsGoal{
		ID:        uuid.New(),
		OwnerID:   owner,
		Saved:     decimal.Zero,
		Goal:      goal,
		GoalName:  name,
		CreatedAt: time.Now().UTC(),
	}
}

// Add increases the saved amount. Fails with ErrGoalBroken on a broken goal
// and ErrInvalidAmount for non-positive or over-precise amounts.
func (g *SavingsGoal) Add(amount decimal.Decimal) error {
	if g.Broken {
		return ErrGoalBroken
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	g.Saved = g.Saved.Add(amount)
	return nil
}

// Break transitions the goal to its terminal broken state, stamps the break
// time, and returns the captured saved amount after resetting it to zero.
// Breaking an already-broken goal fails with ErrGoalBroken.
func (g *SavingsGoal) Break(now time.Time) (decimal.Decimal, error) {
	if g.Broken {
		return decimal.Zero, ErrGoalBroken
	}
	g.Broken = true
	at := now.UTC()
	g.BrokenAt = &at
	captured := g.Saved
	g.Saved = decimal.Zero
	return captured, nil
}
