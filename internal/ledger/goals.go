package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// CreateGoal opens a new savings goal for the caller. Creation moves no
// money, so no PIN is required. At most domain.MaxActiveGoals unbroken
// goals may exist per identity.
func (s *Service) CreateGoal(ctx context.Context, identity *domain.Identity, goal decimal.Decimal, name string) (*GoalSummary, error) {
	gc, err := s.gate.ResolveContext(ctx, identity, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrGoalNameRequired
	}
	if err := domain.ValidateAmount(goal); err != nil {
		return nil, err
	}
	if goal.LessThan(domain.MinGoalAmount) {
		return nil, domain.ErrGoalTooSmall
	}

	var created *domain.SavingsGoal
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		active, err := tx.CountActiveGoals(gc.Identity.ID)
		if err != nil {
			return err
		}
		if active >= domain.MaxActiveGoals {
			return domain.ErrTooManyActiveGoals
		}
		created = domain.NewSavingsGoal(gc.Identity.ID, goal, strings.TrimSpace(name))
		return tx.InsertGoal(created)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("identity_id", gc.Identity.ID.String()).
		Str("goal_id", created.ID.String()).
		Str("goal", goal.String()).
		Msg("Savings goal created")

	return goalSummary(created), nil
}

// FundGoal moves amount from the caller's account into the goal. The
// account debit and the goal credit commit in one unit, so a conflict on
// either side retries both with fresh reads.
func (s *Service) FundGoal(ctx context.Context, identity *domain.Identity, goalID string, amount decimal.Decimal, pin string) (*GoalSummary, error) {
	gc, err := s.gate.RequireSecret(ctx, identity, pin)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	var funded *domain.SavingsGoal
	err = s.atomicWithRetry(ctx, func(tx store.Tx) error {
		goal, err := s.goalOf(tx, gc, goalID)
		if err != nil {
			return err
		}
		account, err := s.accountOf(tx, gc.Identity)
		if err != nil {
			return err
		}
		if err := account.Withdraw(amount); err != nil {
			return err
		}
		if err := goal.Add(amount); err != nil {
			return err
		}
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		if err := tx.PutGoal(goal); err != nil {
			return err
		}
		funded = goal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("identity_id", gc.Identity.ID.String()).
		Str("goal_id", funded.ID.String()).
		Str("amount", amount.String()).
		Str("saved", funded.Saved.String()).
		Msg("Savings goal funded")

	return goalSummary(funded), nil
}

// BreakGoal smashes the goal and returns its savings to the caller's
// account. Breaking is terminal: the goal stays visible with a zero
// balance and can never be funded or broken again. Breaking an empty goal
// moves no money but still marks it broken.
func (s *Service) BreakGoal(ctx context.Context, identity *domain.Identity, goalID, pin string) (*GoalSummary, error) {
	gc, err := s.gate.RequireSecret(ctx, identity, pin)
	if err != nil {
		return nil, err
	}

	var broken *domain.SavingsGoal
	err = s.atomicWithRetry(ctx, func(tx store.Tx) error {
		goal, err := s.goalOf(tx, gc, goalID)
		if err != nil {
			return err
		}
		returned, err := goal.Break(time.Now())
		if err != nil {
			return err
		}
		if returned.IsPositive() {
			account, err := s.accountOf(tx, gc.Identity)
			if err != nil {
				return err
			}
			if err := account.Deposit(returned); err != nil {
				return err
			}
			if err := tx.PutAccount(account); err != nil {
				return err
			}
		}
		if err := tx.PutGoal(goal); err != nil {
			return err
		}
		broken = goal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("identity_id", gc.Identity.ID.String()).
		Str("goal_id", broken.ID.String()).
		Msg("Savings goal broken")

	return goalSummary(broken), nil
}

// ListGoals returns the caller's goals ordered by creation time, oldest
// first. With activeOnly set, broken goals are filtered out.
func (s *Service) ListGoals(ctx context.Context, identity *domain.Identity, activeOnly bool) ([]*GoalSummary, error) {
	gc, err := s.gate.ResolveContext(ctx, identity, "")
	if err != nil {
		return nil, err
	}

	var goals []*domain.SavingsGoal
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		goals, err = tx.GoalsByOwner(gc.Identity.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(goals, func(i, j int) bool {
		return goals[i].CreatedAt.Before(goals[j].CreatedAt)
	})

	summaries := make([]*GoalSummary, 0, len(goals))
	for _, goal := range goals {
		if activeOnly && goal.Broken {
			continue
		}
		summaries = append(summaries, goalSummary(goal))
	}
	return summaries, nil
}

// goalOf resolves a goal id string to the caller's goal inside the current
// unit. A malformed id and a goal owned by somebody else are both a plain
// not-found: goal ids are not probeable.
func (s *Service) goalOf(tx store.Tx, gc *auth.Context, goalID string) (*domain.SavingsGoal, error) {
	id, err := uuid.Parse(goalID)
	if err != nil {
		return nil, domain.ErrGoalNotFound
	}
	goal, err := tx.GoalByID(id, gc.Identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrGoalNotFound
		}
		return nil, fmt.Errorf("loading goal %s: %w", id, err)
	}
	return goal, nil
}

func goalSummary(goal *domain.SavingsGoal) *GoalSummary {
	return &GoalSummary{
		ID:        goal.ID,
		Saved:     goal.Saved,
		Goal:      goal.Goal,
		GoalName:  goal.GoalName,
		Broken:    goal.Broken,
		BrokenAt:  goal.BrokenAt,
		CreatedAt: goal.CreatedAt,
	}
}
