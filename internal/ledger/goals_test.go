package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store/inmemory"
)

func TestCreateGoal(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")

	summary, err := svc.CreateGoal(context.Background(), alice, d("500.00"), "new bike")
	require.NoError(t, err)
	assert.Equal(t, "new bike", summary.GoalName)
	assert.True(t, summary.Goal.Equal(d("500.00")))
	assert.True(t, summary.Saved.IsZero())
	assert.False(t, summary.Broken)
}

func TestCreateGoal_Validation(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")
	ctx := context.Background()

	_, err := svc.CreateGoal(ctx, alice, d("500.00"), "   ")
	assert.ErrorIs(t, err, domain.ErrGoalNameRequired)

	_, err = svc.CreateGoal(ctx, alice, d("0.99"), "too small")
	assert.ErrorIs(t, err, domain.ErrGoalTooSmall)

	// The minimum itself is allowed.
	_, err = svc.CreateGoal(ctx, alice, d("1.00"), "minimal")
	assert.NoError(t, err)

	_, err = svc.CreateGoal(ctx, nil, d("10.00"), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestCreateGoal_ActiveLimit(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")
	ctx := context.Background()

	for i := 0; i < domain.MaxActiveGoals; i++ {
		_, err := svc.CreateGoal(ctx, alice, d("10.00"), fmt.Sprintf("goal %d", i))
		require.NoError(t, err)
	}

	_, err := svc.CreateGoal(ctx, alice, d("10.00"), "one too many")
	assert.ErrorIs(t, err, domain.ErrTooManyActiveGoals)

	// Breaking one frees a slot.
	goals, err := svc.ListGoals(ctx, alice, true)
	require.NoError(t, err)
	_, err = svc.BreakGoal(ctx, alice, goals[0].ID.String(), testPIN)
	require.NoError(t, err)

	_, err = svc.CreateGoal(ctx, alice, d("10.00"), "replacement")
	assert.NoError(t, err)
}

func TestFundGoal(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "200.00")
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, alice, d("500.00"), "bike")
	require.NoError(t, err)

	funded, err := svc.FundGoal(ctx, alice, goal.ID.String(), d("150.00"), testPIN)
	require.NoError(t, err)
	assert.True(t, funded.Saved.Equal(d("150.00")))
	assert.True(t, balanceOf(t, st, alice).Equal(d("50.00")))
}

func TestFundGoal_Failures(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "100.00")
	bob := seedParty(t, st, "Bob", "100.00")
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, alice, d("500.00"), "bike")
	require.NoError(t, err)

	// More than the account holds: nothing moves.
	_, err = svc.FundGoal(ctx, alice, goal.ID.String(), d("100.01"), testPIN)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.True(t, balanceOf(t, st, alice).Equal(d("100.00")))

	// No PIN, wrong PIN.
	_, err = svc.FundGoal(ctx, alice, goal.ID.String(), d("10.00"), "")
	assert.ErrorIs(t, err, domain.ErrMissingSecret)
	_, err = svc.FundGoal(ctx, alice, goal.ID.String(), d("10.00"), "9999")
	assert.ErrorIs(t, err, domain.ErrInvalidSecret)

	// Someone else's goal is indistinguishable from a missing one.
	_, err = svc.FundGoal(ctx, bob, goal.ID.String(), d("10.00"), testPIN)
	assert.ErrorIs(t, err, domain.ErrGoalNotFound)

	_, err = svc.FundGoal(ctx, alice, "not-a-uuid", d("10.00"), testPIN)
	assert.ErrorIs(t, err, domain.ErrGoalNotFound)
}

func TestBreakGoal(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "200.00")
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, alice, d("500.00"), "bike")
	require.NoError(t, err)
	_, err = svc.FundGoal(ctx, alice, goal.ID.String(), d("150.00"), testPIN)
	require.NoError(t, err)

	broken, err := svc.BreakGoal(ctx, alice, goal.ID.String(), testPIN)
	require.NoError(t, err)
	assert.True(t, broken.Broken)
	assert.True(t, broken.Saved.IsZero())
	assert.NotNil(t, broken.BrokenAt)

	// The 150.00 returned to the account.
	assert.True(t, balanceOf(t, st, alice).Equal(d("200.00")))

	// Terminal: funding and re-breaking both fail.
	_, err = svc.FundGoal(ctx, alice, goal.ID.String(), d("10.00"), testPIN)
	assert.ErrorIs(t, err, domain.ErrGoalBroken)
	_, err = svc.BreakGoal(ctx, alice, goal.ID.String(), testPIN)
	assert.ErrorIs(t, err, domain.ErrGoalBroken)
}

func TestBreakGoal_Empty(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "50.00")
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, alice, d("500.00"), "bike")
	require.NoError(t, err)

	// Breaking an empty goal moves no money but still marks it broken.
	broken, err := svc.BreakGoal(ctx, alice, goal.ID.String(), testPIN)
	require.NoError(t, err)
	assert.True(t, broken.Broken)
	assert.True(t, balanceOf(t, st, alice).Equal(d("50.00")))
}

func TestListGoals(t *testing.T) {
	st := inmemory.NewStore()
	svc := newService(st)
	alice := seedParty(t, st, "Alice", "0.00")
	ctx := context.Background()

	first, err := svc.CreateGoal(ctx, alice, d("10.00"), "first")
	require.NoError(t, err)
	second, err := svc.CreateGoal(ctx, alice, d("20.00"), "second")
	require.NoError(t, err)

	_, err = svc.BreakGoal(ctx, alice, first.ID.String(), testPIN)
	require.NoError(t, err)

	all, err := svc.ListGoals(ctx, alice, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Oldest first; the broken goal stays visible.
	assert.Equal(t, first.ID, all[0].ID)
	assert.True(t, all[0].Broken)
	assert.Equal(t, second.ID, all[1].ID)

	active, err := svc.ListGoals(ctx, alice, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}
