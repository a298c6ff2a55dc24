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

func TestDeposit(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")

	receipt, err := svc.Deposit(context.Background(), alice, d("100.00"), testPIN, "k1")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Amount.Equal(d("100.00")))

	assert.True(t, balanceOf(t, st, alice).Equal(d("100.00")))
	assert.Equal(t, 1, recordCount(t, st, alice))
}

func TestDeposit_ExactlyOncePerKey(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")

	_, err := svc.Deposit(context.Background(), alice, d("100.00"), testPIN, "k1")
	require.NoError(t, err)

	// The §8-style replay: the same key must change nothing.
	_, err = svc.Deposit(context.Background(), alice, d("100.00"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrDuplicateOperation)

	assert.True(t, balanceOf(t, st, alice).Equal(d("100.00")))
	assert.Equal(t, 1, recordCount(t, st, alice))

	// The key is spent across operation kinds too.
	_, err = svc.Withdraw(context.Background(), alice, d("10.00"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrDuplicateOperation)
}

func TestDeposit_Validation(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"missing idempotency key", func() error {
			_, err := svc.Deposit(ctx, alice, d("10.00"), testPIN, "")
			return err
		}, domain.ErrMissingIdempotencyKey},
		{"missing pin", func() error {
			_, err := svc.Deposit(ctx, alice, d("10.00"), "", "k-a")
			return err
		}, domain.ErrMissingSecret},
		{"wrong pin", func() error {
			_, err := svc.Deposit(ctx, alice, d("10.00"), "9999", "k-b")
			return err
		}, domain.ErrInvalidSecret},
		{"nil identity", func() error {
			_, err := svc.Deposit(ctx, nil, d("10.00"), testPIN, "k-c")
			return err
		}, domain.ErrNotAuthenticated},
		{"zero amount", func() error {
			_, err := svc.Deposit(ctx, alice, d("0.00"), testPIN, "k-d")
			return err
		}, domain.ErrInvalidAmount},
		{"over ceiling", func() error {
			_, err := svc.Deposit(ctx, alice, d("10000.01"), testPIN, "k-e")
			return err
		}, domain.ErrAmountExceedsLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantErr)
			assert.True(t, balanceOf(t, st, alice).IsZero())
			assert.Zero(t, recordCount(t, st, alice))
		})
	}
}

func TestWithdraw_ExactBalanceBoundary(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "50.00")

	// Withdrawing one cent more than the balance fails untouched.
	_, err := svc.Withdraw(context.Background(), alice, d("50.01"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.True(t, balanceOf(t, st, alice).Equal(d("50.00")))
	assert.Zero(t, recordCount(t, st, alice))

	// The exact balance drains to zero.
	receipt, err := svc.Withdraw(context.Background(), alice, d("50.00"), testPIN, "k2")
	require.NoError(t, err)
	assert.True(t, receipt.Amount.Equal(d("50.00")))
	assert.True(t, balanceOf(t, st, alice).IsZero())
	assert.Equal(t, 1, recordCount(t, st, alice))
}

func TestWithdraw_FailedAttemptLeavesNoRecord(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "10.00")

	_, err := svc.Withdraw(context.Background(), alice, d("20.00"), testPIN, "k1")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// The failed attempt must not burn the key.
	_, err = svc.Deposit(context.Background(), alice, d("5.00"), testPIN, "k1")
	require.NoError(t, err)
	assert.True(t, balanceOf(t, st, alice).Equal(d("15.00")))
}

func TestDeposit_RetriesVersionConflict(t *testing.T) {
	st := inmemory.NewStore()
	// Calls 1-2 are the idempotency precheck and the gate; the mutation
	// unit starts at call 3. Two conflicts, then success.
	scripted := &scriptedStore{inner: st, failAt: map[int]error{
		3: store.ErrVersionConflict,
		4: store.ErrVersionConflict,
	}}
	svc := newService(scripted)
	alice := seedParty(t, st, "Alice", "0.00")

	_, err := svc.Deposit(context.Background(), alice, d("25.00"), testPIN, "k1")
	require.NoError(t, err)
	assert.True(t, balanceOf(t, st, alice).Equal(d("25.00")))
}

func TestDeposit_ConflictRetryExhaustion(t *testing.T) {
	st := inmemory.NewStore()
	scripted := &scriptedStore{inner: st, failAt: map[int]error{
		3: store.ErrVersionConflict,
		4: store.ErrVersionConflict,
		5: store.ErrVersionConflict,
	}}
	svc := newService(scripted)
	alice := seedParty(t, st, "Alice", "0.00")

	_, err := svc.Deposit(context.Background(), alice, d("25.00"), testPIN, "k1")
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, balanceOf(t, st, alice).IsZero())
	assert.Zero(t, recordCount(t, st, alice))
}

func TestAccountDetail(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "42.00")

	summary, err := svc.AccountDetail(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(d("42.00")))
	assert.Equal(t, "Alice Tester", summary.FullName)
	assert.Equal(t, alice.PublicCode, summary.PublicCode)

	_, err = svc.AccountDetail(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestHistory(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")
	bob := seedParty(t, st, "Bob", "0.00")
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Deposit(ctx, alice, d("10.00"), testPIN, "dep-"+string(rune('a'+i)))
		require.NoError(t, err)
	}
	_, err := svc.Transfer(ctx, alice, bob.PublicCode, d("30.00"), testPIN, "tr-1")
	require.NoError(t, err)

	page, err := svc.History(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, 13, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Entries, HistoryPageSize)

	// Newest first: the transfer leads the page, with both party names.
	first := page.Entries[0]
	assert.Equal(t, string(domain.KindTransfer), first.Type)
	assert.Equal(t, "Alice Tester", first.From)
	assert.Equal(t, "Bob Tester", first.To)

	second := page.Entries[1]
	assert.Equal(t, string(domain.KindDeposit), second.Type)
	assert.Equal(t, "Alice Tester", second.Owner)

	last, err := svc.History(ctx, alice, 1)
	require.NoError(t, err)
	assert.Len(t, last.Entries, 3)

	// The transfer shows up for the receiver too.
	bobPage, err := svc.History(ctx, bob, 0)
	require.NoError(t, err)
	require.Len(t, bobPage.Entries, 1)
	assert.Equal(t, string(domain.KindTransfer), bobPage.Entries[0].Type)
}

func TestHistory_EmptyAndOutOfRange(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")

	page, err := svc.History(context.Background(), alice, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Entries)

	page, err = svc.History(context.Background(), alice, 7)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}
