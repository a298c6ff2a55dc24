package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store/inmemory"
)

func TestTransfer(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "100.00")
	bob := seedParty(t, st, "Bob", "20.00")

	receipt, err := svc.Transfer(context.Background(), alice, bob.PublicCode, d("30.00"), testPIN, "k1")
	require.NoError(t, err)
	assert.True(t, receipt.Amount.Equal(d("30.00")))

	// Conservation: the total across both accounts is unchanged.
	assert.True(t, balanceOf(t, st, alice).Equal(d("70.00")))
	assert.True(t, balanceOf(t, st, bob).Equal(d("50.00")))

	// One shared record, visible to both parties.
	assert.Equal(t, 1, recordCount(t, st, alice))
	assert.Equal(t, 1, recordCount(t, st, bob))
}

func TestTransfer_SelfTransfer(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "100.00")

	_, err := svc.Transfer(context.Background(), alice, alice.PublicCode, d("30.00"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrSelfTransfer)

	// Rejected before any mutation: balance and key untouched.
	assert.True(t, balanceOf(t, st, alice).Equal(d("100.00")))
	assert.Zero(t, recordCount(t, st, alice))

	_, err = svc.Deposit(context.Background(), alice, d("1.00"), testPIN, "k1")
	assert.NoError(t, err, "failed transfer must not burn the key")
}

func TestTransfer_ReceiverNotFound(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "100.00")

	_, err := svc.Transfer(context.Background(), alice, "0000000000", d("30.00"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrReceiverNotFound)
	assert.True(t, balanceOf(t, st, alice).Equal(d("100.00")))
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "10.00")
	bob := seedParty(t, st, "Bob", "0.00")

	_, err := svc.Transfer(context.Background(), alice, bob.PublicCode, d("10.01"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.True(t, balanceOf(t, st, alice).Equal(d("10.00")))
	assert.True(t, balanceOf(t, st, bob).IsZero())
}

func TestTransfer_DuplicateKey(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "100.00")
	bob := seedParty(t, st, "Bob", "0.00")

	_, err := svc.Transfer(context.Background(), alice, bob.PublicCode, d("30.00"), testPIN, "k1")
	require.NoError(t, err)

	_, err = svc.Transfer(context.Background(), alice, bob.PublicCode, d("30.00"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrDuplicateOperation)

	assert.True(t, balanceOf(t, st, alice).Equal(d("70.00")))
	assert.True(t, balanceOf(t, st, bob).Equal(d("30.00")))
}

func TestTransfer_PostDebitFailureIsFatal(t *testing.T) {
	st := inmemory.NewStore()
	// Calls 1-4 are claim, gate, receiver resolve, and the debit leg. The
	// credit leg starts at call 5; failing every attempt leaves the
	// transfer stuck past the point of no return.
	scripted := &scriptedStore{inner: st, failAt: map[int]error{
		5: store.ErrVersionConflict,
		6: store.ErrVersionConflict,
		7: store.ErrVersionConflict,
	}}
	svc := newService(scripted)
	alice := seedParty(t, st, "Alice", "100.00")
	bob := seedParty(t, st, "Bob", "0.00")

	_, err := svc.Transfer(context.Background(), alice, bob.PublicCode, d("30.00"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrReconciliationRequired)

	// The debit committed and is deliberately not rolled back; the credit
	// and the record never happened.
	assert.True(t, balanceOf(t, st, alice).Equal(d("70.00")))
	assert.True(t, balanceOf(t, st, bob).IsZero())
	assert.Zero(t, recordCount(t, st, alice))
}

func TestTransfer_ScenarioEndToEnd(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")
	bob := seedParty(t, st, "Bob", "0.00")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, alice, d("100.00"), testPIN, "s1")
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, alice, bob.PublicCode, d("40.00"), testPIN, "s2")
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, bob, d("40.00"), testPIN, "s3")
	require.NoError(t, err)

	assert.True(t, balanceOf(t, st, alice).Equal(d("60.00")))
	assert.True(t, balanceOf(t, st, bob).IsZero())

	// Replaying the middle step changes nothing.
	_, err = svc.Transfer(ctx, alice, bob.PublicCode, d("40.00"), testPIN, "s2")
	assert.ErrorIs(t, err, domain.ErrDuplicateOperation)
	assert.True(t, balanceOf(t, st, alice).Equal(d("60.00")))
}
