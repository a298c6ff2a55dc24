// Package store defines the persistence boundary for the ledger: atomic
// read-modify-write over Account and SavingsGoal rows with optimistic-version
// semantics, and atomic insert-if-absent for transaction records keyed by
// their globally unique idempotency key.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dvoloshyn/pocket-money/internal/domain"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrVersionConflict indicates an optimistic-lock failure: the row's
	// version changed since it was read. Callers re-read and retry the
	// whole unit a bounded number of times.
	ErrVersionConflict = errors.New("store: version conflict")

	// ErrDuplicateKey indicates an insert-if-absent failure on a unique
	// column (idempotency key, email, phone number, public code).
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// Tx is a single atomic durability unit. All reads return defensive copies;
// all writes are staged and become visible only when the unit commits.
// Implementations guarantee that a failed unit leaves no observable state.
type Tx interface {
	// Identities.
	IdentityByID(id uuid.UUID) (*domain.Identity, error)
	IdentityByPublicCode(code string) (*domain.Identity, error)
	InsertIdentity(identity *domain.Identity) error

	// Credentials.
	CredentialByOwner(owner uuid.UUID) (*domain.Credential, error)
	CredentialByEmail(email string) (*domain.Credential, error)
	InsertCredential(cred *domain.Credential) error
	PutCredential(cred *domain.Credential) error

	// Accounts. PutAccount fails with ErrVersionConflict unless the
	// account's version matches the stored row, then bumps it.
	AccountByOwner(owner uuid.UUID) (*domain.Account, error)
	InsertAccount(account *domain.Account) error
	PutAccount(account *domain.Account) error

	// Savings goals. PutGoal follows the same version discipline.
	GoalByID(id, owner uuid.UUID) (*domain.SavingsGoal, error)
	GoalsByOwner(owner uuid.UUID) ([]*domain.SavingsGoal, error)
	CountActiveGoals(owner uuid.UUID) (int, error)
	InsertGoal(goal *domain.SavingsGoal) error
	PutGoal(goal *domain.SavingsGoal) error

	// Transaction records. InsertTransaction enforces idempotency-key
	// uniqueness across all kinds within the same durability unit, so the
	// key claim and the record insert can never be split by a concurrent
	// retry. Records are write-once.
	InsertTransaction(rec *domain.Transaction) error
	HasIdempotencyKey(key string) (bool, error)

	// TransactionsByIdentity returns the records involving the identity,
	// newest first, with offset/limit paging, plus the total count.
	TransactionsByIdentity(id uuid.UUID, offset, limit int) ([]*domain.Transaction, int, error)
}

// Store runs closures against the backing rows as atomic units. A returned
// error from fn aborts the unit; ErrVersionConflict from commit means the
// whole closure should be retried with fresh reads.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
