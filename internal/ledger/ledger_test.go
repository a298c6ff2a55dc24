package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store/inmemory"
)

const testPIN = "1234"

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newService wires a ledger service over st with a real gate and a cheap
// bcrypt cost. st is usually the in-memory store, or a wrapper around it.
func newService(st store.Store) *Service {
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	gate := auth.NewGate(st, hasher, zerolog.Nop())
	return NewService(st, gate, zerolog.Nop())
}

// seedParty inserts an identity with a credential (PIN "1234") and an
// account holding balance.
func seedParty(t *testing.T, st *inmemory.Store, firstName, balance string) *domain.Identity {
	t.Helper()

	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	pinHash, err := hasher.Hash(testPIN)
	require.NoError(t, err)

	identity := domain.NewIdentity(firstName, "Tester", time.Date(1995, 3, 10, 0, 0, 0, 0, time.UTC))
	err = st.Atomic(context.Background(), func(tx store.Tx) error {
		if err := tx.InsertIdentity(identity); err != nil {
			return err
		}
		if err := tx.InsertCredential(&domain.Credential{
			ID:          uuid.New(),
			OwnerID:     identity.ID,
			Email:       strings.ToLower(firstName) + "@example.com",
			PhoneNumber: "+" + uuid.NewString(),
			PINHash:     pinHash,
			CreatedAt:   time.Now(),
		}); err != nil {
			return err
		}
		account := domain.NewAccount(identity.ID)
		account.Balance = d(balance)
		return tx.InsertAccount(account)
	})
	require.NoError(t, err)
	return identity
}

func balanceOf(t *testing.T, st store.Store, identity *domain.Identity) decimal.Decimal {
	t.Helper()
	var balance decimal.Decimal
	err := st.Atomic(context.Background(), func(tx store.Tx) error {
		account, err := tx.AccountByOwner(identity.ID)
		if err != nil {
			return err
		}
		balance = account.Balance
		return nil
	})
	require.NoError(t, err)
	return balance
}

func recordCount(t *testing.T, st store.Store, identity *domain.Identity) int {
	t.Helper()
	var total int
	err := st.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		_, total, err = tx.TransactionsByIdentity(identity.ID, 0, 1)
		return err
	})
	require.NoError(t, err)
	return total
}

// scriptedStore wraps a store and fails selected Atomic calls without
// running the closure, simulating commit-time failures.
type scriptedStore struct {
	inner  store.Store
	calls  int
	failAt map[int]error
}

func (s *scriptedStore) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	s.calls++
	if err, ok := s.failAt[s.calls]; ok {
		return err
	}
	return s.inner.Atomic(ctx, fn)
}
