package domain

import "github.com/shopspring/decimal"

// System-wide money rules. All amounts are fixed-point decimals with exactly
// 2 fractional digits; binary floats are never used for money.
var (
	// MaxOperationAmount is the per-operation ceiling for deposits,
	// withdrawals, and transfers.
	MaxOperationAmount = decimal.RequireFromString("10000.00")

	// MinGoalAmount is the smallest allowed savings goal target.
	MinGoalAmount = decimal.RequireFromString("1.00")
)

// MaxActiveGoals caps the number of simultaneously non-broken savings goals
// per identity, enforced at creation time.
const MaxActiveGoals = 10

// ValidateAmount checks that amount is strictly positive and representable
// with 2 fractional digits. Over-precise inputs are rejected rather than
// rounded so repeated operations cannot drift.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateOperationAmount applies ValidateAmount plus the system ceiling.
// Used by every account-level money movement before the ledger primitive runs.
func ValidateOperationAmount(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(MaxOperationAmount) {
		return ErrAmountExceedsLimit
	}
	return nil
}
