// Package inmemory is an in-memory implementation of the ledger store.
// It is safe for concurrent use and suitable for single-instance deployments
// and testing. Data is lost on restart - production deployments use a
// database-backed store with equivalent transactional semantics.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// Store keeps all rows in maps guarded by a single mutex. Atomic units stage
// their writes and apply them only on commit, so a failed unit leaves no
// observable state, matching the contract a database transaction provides.
type Store struct {
	mu sync.Mutex

	identities   map[uuid.UUID]*domain.Identity
	byPublicCode map[string]uuid.UUID

	credentials map[uuid.UUID]*domain.Credential // keyed by owner id
	byEmail     map[string]uuid.UUID             // email -> owner id
	byPhone     map[string]uuid.UUID             // phone -> owner id

	accounts map[uuid.UUID]*domain.Account     // keyed by owner id
	goals    map[uuid.UUID]*domain.SavingsGoal // keyed by goal id

	transactions []*domain.Transaction
	usedKeys     map[string]struct{}
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		identities:   make(map[uuid.UUID]*domain.Identity),
		byPublicCode: make(map[string]uuid.UUID),
		credentials:  make(map[uuid.UUID]*domain.Credential),
		byEmail:      make(map[string]uuid.UUID),
		byPhone:      make(map[string]uuid.UUID),
		accounts:     make(map[uuid.UUID]*domain.Account),
		goals:        make(map[uuid.UUID]*domain.SavingsGoal),
		usedKeys:     make(map[string]struct{}),
	}
}

// Atomic implements store.Store. The closure runs under the store lock with
// staged writes; returning an error discards everything the closure staged.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// tx stages all writes of one atomic unit. Reads merge staged rows over
// committed ones and always return copies.
type tx struct {
	s *Store

	identities  map[uuid.UUID]*domain.Identity
	credentials map[uuid.UUID]*domain.Credential
	accounts    map[uuid.UUID]*domain.Account
	goals       map[uuid.UUID]*domain.SavingsGoal

	records []*domain.Transaction
	keys    map[string]struct{}
}

func newTx(s *Store) *tx {
	return &tx{
		s:           s,
		identities:  make(map[uuid.UUID]*domain.Identity),
		credentials: make(map[uuid.UUID]*domain.Credential),
		accounts:    make(map[uuid.UUID]*domain.Account),
		goals:       make(map[uuid.UUID]*domain.SavingsGoal),
		keys:        make(map[string]struct{}),
	}
}

func (t *tx) commit() {
	for id, identity := range t.identities {
		t.s.identities[id] = identity
		t.s.byPublicCode[identity.PublicCode] = id
	}
	for owner, cred := range t.credentials {
		if prev, ok := t.s.credentials[owner]; ok {
			delete(t.s.byEmail, prev.Email)
			delete(t.s.byPhone, prev.PhoneNumber)
		}
		t.s.credentials[owner] = cred
		t.s.byEmail[cred.Email] = owner
		t.s.byPhone[cred.PhoneNumber] = owner
	}
	for owner, account := range t.accounts {
		t.s.accounts[owner] = account
	}
	for id, goal := range t.goals {
		t.s.goals[id] = goal
	}
	for _, rec := range t.records {
		t.s.transactions = append(t.s.transactions, rec)
		t.s.usedKeys[rec.IdempotencyKey] = struct{}{}
	}
}

// ==================== Identities ====================

func (t *tx) IdentityByID(id uuid.UUID) (*domain.Identity, error) {
	if identity, ok := t.identities[id]; ok {
		cp := *identity
		return &cp, nil
	}
	identity, ok := t.s.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	cp := *identity
	return &cp, nil
}

func (t *tx) IdentityByPublicCode(code string) (*domain.Identity, error) {
	for _, identity := range t.identities {
		if identity.PublicCode == code {
			cp := *identity
			return &cp, nil
		}
	}
	id, ok := t.s.byPublicCode[code]
	if !ok {
		return nil, fmt.Errorf("public code %s: %w", code, store.ErrNotFound)
	}
	return t.IdentityByID(id)
}

func (t *tx) InsertIdentity(identity *domain.Identity) error {
	if _, err := t.IdentityByPublicCode(identity.PublicCode); err == nil {
		return fmt.Errorf("public code %s: %w", identity.PublicCode, store.ErrDuplicateKey)
	}
	cp := *identity
	t.identities[identity.ID] = &cp
	return nil
}

// ==================== Credentials ====================

func (t *tx) CredentialByOwner(owner uuid.UUID) (*domain.Credential, error) {
	if cred, ok := t.credentials[owner]; ok {
		cp := *cred
		return &cp, nil
	}
	cred, ok := t.s.credentials[owner]
	if !ok {
		return nil, fmt.Errorf("credential for owner %s: %w", owner, store.ErrNotFound)
	}
	cp := *cred
	return &cp, nil
}

func (t *tx) CredentialByEmail(email string) (*domain.Credential, error) {
	for _, cred := range t.credentials {
		if cred.Email == email {
			cp := *cred
			return &cp, nil
		}
	}
	owner, ok := t.s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("credential for email: %w", store.ErrNotFound)
	}
	return t.CredentialByOwner(owner)
}

func (t *tx) InsertCredential(cred *domain.Credential) error {
	if _, err := t.CredentialByEmail(cred.Email); err == nil {
		return fmt.Errorf("email already registered: %w", store.ErrDuplicateKey)
	}
	if _, ok := t.s.byPhone[cred.PhoneNumber]; ok {
		return fmt.Errorf("phone number already registered: %w", store.ErrDuplicateKey)
	}
	for _, staged := range t.credentials {
		if staged.PhoneNumber == cred.PhoneNumber {
			return fmt.Errorf("phone number already registered: %w", store.ErrDuplicateKey)
		}
	}
	cp := *cred
	t.credentials[cred.OwnerID] = &cp
	return nil
}

func (t *tx) PutCredential(cred *domain.Credential) error {
	if _, err := t.CredentialByOwner(cred.OwnerID); err != nil {
		return err
	}
	cp := *cred
	t.credentials[cred.OwnerID] = &cp
	return nil
}

// ==================== Accounts ====================

func (t *tx) AccountByOwner(owner uuid.UUID) (*domain.Account, error) {
	if account, ok := t.accounts[owner]; ok {
		cp := *account
		return &cp, nil
	}
	account, ok := t.s.accounts[owner]
	if !ok {
		return nil, fmt.Errorf("account for owner %s: %w", owner, store.ErrNotFound)
	}
	cp := *account
	return &cp, nil
}

func (t *tx) InsertAccount(account *domain.Account) error {
	if _, err := t.AccountByOwner(account.OwnerID); err == nil {
		return fmt.Errorf("account for owner %s: %w", account.OwnerID, store.ErrDuplicateKey)
	}
	cp := *account
	t.accounts[account.OwnerID] = &cp
	return nil
}

func (t *tx) PutAccount(account *domain.Account) error {
	current, err := t.AccountByOwner(account.OwnerID)
	if err != nil {
		return err
	}
	if account.Version != current.Version {
		return fmt.Errorf("account %s at version %d, expected %d: %w",
			account.ID, current.Version, account.Version, store.ErrVersionConflict)
	}
	cp := *account
	cp.Version++
	t.accounts[account.OwnerID] = &cp
	return nil
}

// ==================== Savings goals ====================

func (t *tx) GoalByID(id, owner uuid.UUID) (*domain.SavingsGoal, error) {
	goal, ok := t.goals[id]
	if !ok {
		goal, ok = t.s.goals[id]
	}
	if !ok || goal.OwnerID != owner {
		return nil, fmt.Errorf("goal %s: %w", id, store.ErrNotFound)
	}
	cp := *goal
	return &cp, nil
}

func (t *tx) GoalsByOwner(owner uuid.UUID) ([]*domain.SavingsGoal, error) {
	seen := make(map[uuid.UUID]bool)
	var out []*domain.SavingsGoal
	for id, goal := range t.goals {
		if goal.OwnerID == owner {
			cp := *goal
			out = append(out, &cp)
		}
		seen[id] = true
	}
	for id, goal := range t.s.goals {
		if seen[id] || goal.OwnerID != owner {
			continue
		}
		cp := *goal
		out = append(out, &cp)
	}
	return out, nil
}

func (t *tx) CountActiveGoals(owner uuid.UUID) (int, error) {
	goals, err := t.GoalsByOwner(owner)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, goal := range goals {
		if !goal.Broken {
			count++
		}
	}
	return count, nil
}

func (t *tx) InsertGoal(goal *domain.SavingsGoal) error {
	if _, err := t.GoalByID(goal.ID, goal.OwnerID); err == nil {
		return fmt.Errorf("goal %s: %w", goal.ID, store.ErrDuplicateKey)
	}
	cp := *goal
	t.goals[goal.ID] = &cp
	return nil
}

func (t *tx) PutGoal(goal *domain.SavingsGoal) error {
	current, err := t.GoalByID(goal.ID, goal.OwnerID)
	if err != nil {
		return err
	}
	if goal.Version != current.Version {
		return fmt.Errorf("goal %s at version %d, expected %d: %w",
			goal.ID, current.Version, goal.Version, store.ErrVersionConflict)
	}
	cp := *goal
	cp.Version++
	t.goals[goal.ID] = &cp
	return nil
}

// ==================== Transaction records ====================

func (t *tx) InsertTransaction(rec *domain.Transaction) error {
	used, err := t.HasIdempotencyKey(rec.IdempotencyKey)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("idempotency key already used: %w", store.ErrDuplicateKey)
	}
	cp := *rec
	t.records = append(t.records, &cp)
	t.keys[rec.IdempotencyKey] = struct{}{}
	return nil
}

func (t *tx) HasIdempotencyKey(key string) (bool, error) {
	if _, ok := t.keys[key]; ok {
		return true, nil
	}
	_, ok := t.s.usedKeys[key]
	return ok, nil
}

func (t *tx) TransactionsByIdentity(id uuid.UUID, offset, limit int) ([]*domain.Transaction, int, error) {
	var matched []*domain.Transaction
	// Committed records are appended in creation order; walk them backwards
	// so pages come out newest first. Staged records are newer still.
	for i := len(t.records) - 1; i >= 0; i-- {
		if t.records[i].Involves(id) {
			matched = append(matched, t.records[i])
		}
	}
	for i := len(t.s.transactions) - 1; i >= 0; i-- {
		if t.s.transactions[i].Involves(id) {
			matched = append(matched, t.s.transactions[i])
		}
	}

	total := len(matched)
	if offset >= total {
		return []*domain.Transaction{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]*domain.Transaction, len(matched))
	for i, rec := range matched {
		cp := *rec
		out[i] = &cp
	}
	return out, total, nil
}

// Ensure Store implements the boundary interface.
var _ store.Store = (*Store)(nil)
var _ store.Tx = (*tx)(nil)
