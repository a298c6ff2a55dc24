package domain

import "fmt"

// ErrorCode is a stable machine-readable code attached to every domain error.
// The HTTP layer maps codes to status classes; clients branch on them.
type ErrorCode string

const (
	CodeNotAuthenticated       ErrorCode = "NOT_AUTHENTICATED"
	CodeAccountMissing         ErrorCode = "ACCOUNT_MISSING"
	CodeMissingSecret          ErrorCode = "MISSING_SECRET"
	CodeInvalidSecret          ErrorCode = "INVALID_SECRET"
	CodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidAmount          ErrorCode = "INVALID_AMOUNT"
	CodeAmountExceedsLimit     ErrorCode = "AMOUNT_EXCEEDS_LIMIT"
	CodeInsufficientBalance    ErrorCode = "INSUFFICIENT_BALANCE"
	CodeMissingIdempotencyKey  ErrorCode = "MISSING_IDEMPOTENCY_KEY"
	CodeDuplicateOperation     ErrorCode = "DUPLICATE_OPERATION"
	CodeReceiverNotFound       ErrorCode = "RECEIVER_NOT_FOUND"
	CodeSelfTransfer           ErrorCode = "SELF_TRANSFER"
	CodeGoalNotFound           ErrorCode = "GOAL_NOT_FOUND"
	CodeGoalTooSmall           ErrorCode = "GOAL_TOO_SMALL"
	CodeGoalNameRequired       ErrorCode = "GOAL_NAME_REQUIRED"
	CodeGoalBroken             ErrorCode = "GOAL_BROKEN"
	CodeTooManyActiveGoals     ErrorCode = "TOO_MANY_ACTIVE_GOALS"
	CodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	CodeReconciliationRequired ErrorCode = "RECONCILIATION_REQUIRED"
)

// Error is a domain validation or conflict error with a stable code.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Sentinel domain errors. Wrap with fmt.Errorf("...: %w", Err...) to add
// context; callers match with errors.Is.
var (
	ErrNotAuthenticated      = &Error{CodeNotAuthenticated, "no authenticated identity attached to the request"}
	ErrAccountMissing        = &Error{CodeAccountMissing, "authenticated identity has no account"}
	ErrMissingSecret         = &Error{CodeMissingSecret, "transaction PIN is required"}
	ErrInvalidSecret         = &Error{CodeInvalidSecret, "transaction PIN does not match"}
	ErrInvalidCredentials    = &Error{CodeInvalidCredentials, "invalid email or PIN"}
	ErrInvalidAmount         = &Error{CodeInvalidAmount, "amount must be positive with at most 2 decimal places"}
	ErrAmountExceedsLimit    = &Error{CodeAmountExceedsLimit, "amount exceeds the per-operation limit"}
	ErrInsufficientBalance   = &Error{CodeInsufficientBalance, "insufficient account balance"}
	ErrMissingIdempotencyKey = &Error{CodeMissingIdempotencyKey, "idempotency key is required"}
	ErrDuplicateOperation    = &Error{CodeDuplicateOperation, "operation already processed with this idempotency key"}
	ErrReceiverNotFound      = &Error{CodeReceiverNotFound, "no account matches the receiver public code"}
	ErrSelfTransfer          = &Error{CodeSelfTransfer, "cannot transfer money to yourself"}
	ErrGoalNotFound          = &Error{CodeGoalNotFound, "savings goal not found"}
	ErrGoalTooSmall          = &Error{CodeGoalTooSmall, "goal target is below the minimum"}
	ErrGoalNameRequired      = &Error{CodeGoalNameRequired, "goal name is required"}
	ErrGoalBroken            = &Error{CodeGoalBroken, "savings goal has already been broken"}
	ErrTooManyActiveGoals    = &Error{CodeTooManyActiveGoals, "maximum number of active savings goals reached"}

	// ErrConcurrentModification surfaces only after the bounded internal
	// retry on version conflicts is exhausted.
	ErrConcurrentModification = &Error{CodeConcurrentModification, "account was modified concurrently, retry the request"}

	// ErrReconciliationRequired marks the fatal window of a transfer: the
	// sender was debited but the credit or record step failed. The money
	// movement is not rolled back; the incident needs manual reconciliation.
	ErrReconciliationRequired = &Error{CodeReconciliationRequired, "transfer partially applied, manual reconciliation required"}
)

// CodeOf extracts the domain error code from err, unwrapping as needed.
// Returns an empty code when err carries no domain error.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if de, ok := err.(*Error); ok {
			return de.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
