package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store/inmemory"
)

func newTestGate(t *testing.T) (*Gate, *inmemory.Store, *domain.Identity) {
	t.Helper()

	st := inmemory.NewStore()
	hasher := &BcryptHasher{Cost: bcrypt.MinCost}
	gate := NewGate(st, hasher, zerolog.Nop())

	pinHash, err := hasher.Hash("1234")
	require.NoError(t, err)

	identity := domain.NewIdentity("Mila", "Ber", time.Date(1996, 4, 2, 0, 0, 0, 0, time.UTC))
	err = st.Atomic(context.Background(), func(tx store.Tx) error {
		if err := tx.InsertIdentity(identity); err != nil {
			return err
		}
		if err := tx.InsertCredential(&domain.Credential{
			ID:          uuid.New(),
			OwnerID:     identity.ID,
			Email:       "mila@example.com",
			PhoneNumber: "+31061234",
			PINHash:     pinHash,
			CreatedAt:   time.Now(),
		}); err != nil {
			return err
		}
		return tx.InsertAccount(domain.NewAccount(identity.ID))
	})
	require.NoError(t, err)
	return gate, st, identity
}

func TestGate_ResolveContext(t *testing.T) {
	gate, _, identity := newTestGate(t)

	gc, err := gate.ResolveContext(context.Background(), identity, "")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, gc.Identity.ID)
	assert.Equal(t, identity.ID, gc.Account.OwnerID)
}

func TestGate_ResolveContext_NilIdentity(t *testing.T) {
	gate, _, _ := newTestGate(t)

	_, err := gate.ResolveContext(context.Background(), nil, "")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestGate_ResolveContext_MissingAccount(t *testing.T) {
	gate, st, _ := newTestGate(t)

	// An identity that exists but has no account is an integrity failure.
	orphan := domain.NewIdentity("Or", "Phan", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
	err := st.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.InsertIdentity(orphan)
	})
	require.NoError(t, err)

	_, err = gate.ResolveContext(context.Background(), orphan, "")
	assert.ErrorIs(t, err, domain.ErrAccountMissing)
}

func TestGate_SecretValidation(t *testing.T) {
	gate, _, identity := newTestGate(t)
	ctx := context.Background()

	_, err := gate.RequireSecret(ctx, identity, "")
	assert.ErrorIs(t, err, domain.ErrMissingSecret)

	_, err = gate.RequireSecret(ctx, identity, "   ")
	assert.ErrorIs(t, err, domain.ErrMissingSecret)

	_, err = gate.RequireSecret(ctx, identity, "9999")
	assert.ErrorIs(t, err, domain.ErrInvalidSecret)

	gc, err := gate.RequireSecret(ctx, identity, "1234")
	require.NoError(t, err)
	assert.NotNil(t, gc.Account)
}
