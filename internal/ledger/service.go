// Package ledger implements the transactional money-movement core: balance
// primitives on accounts and savings goals, the idempotency guard, and the
// transfer orchestration that debits one account and credits another.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// maxConflictRetries bounds the internal retry of a whole primitive on
// optimistic-version conflicts before surfacing
// domain.ErrConcurrentModification.
const maxConflictRetries = 3

// AccessGate re-validates the caller before money moves. Implemented by
// auth.Gate.
type AccessGate interface {
	// ResolveContext validates the identity and resolves its account; a
	// non-empty secret is re-checked against the stored PIN hash.
	ResolveContext(ctx context.Context, identity *domain.Identity, secret string) (*auth.Context, error)
	// RequireSecret is ResolveContext with a mandatory secret. All
	// money-moving operations use it.
	RequireSecret(ctx context.Context, identity *domain.Identity, secret string) (*auth.Context, error)
}

// Service exposes the ledger operations consumed by the HTTP layer. Every
// operation takes the resolved identity explicitly; there is no ambient
// caller state.
type Service struct {
	store    store.Store
	gate     AccessGate
	guard    *Guard
	recorder Recorder
	log      zerolog.Logger
}

// NewService creates the ledger service.
func NewService(st store.Store, gate AccessGate, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		gate:  gate,
		guard: NewGuard(st),
		log:   log,
	}
}

// Guard exposes the idempotency guard for diagnostic read paths.
func (s *Service) Guard() *Guard { return s.guard }

// atomicWithRetry reruns the unit with fresh reads on version conflicts, up
// to maxConflictRetries attempts, then surfaces the conflict to the caller.
func (s *Service) atomicWithRetry(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for range maxConflictRetries {
		err = s.store.Atomic(ctx, fn)
		if err == nil || !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return fmt.Errorf("%v: %w", err, domain.ErrConcurrentModification)
}

// Deposit adds amount to the caller's account and records it. The caller is
// re-authenticated with the transaction PIN, and the idempotency key makes
// retries safe: exactly one balance increase happens per key.
func (s *Service) Deposit(ctx context.Context, identity *domain.Identity, amount decimal.Decimal, pin, idempotencyKey string) (*Receipt, error) {
	if err := s.guard.Claim(ctx, idempotencyKey); err != nil {
		return nil, err
	}
	gc, err := s.gate.RequireSecret(ctx, identity, pin)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateOperationAmount(amount); err != nil {
		return nil, err
	}

	var rec *domain.Transaction
	err = s.atomicWithRetry(ctx, func(tx store.Tx) error {
		account, err := s.accountOf(tx, gc.Identity)
		if err != nil {
			return err
		}
		if err := account.Deposit(amount); err != nil {
			return err
		}
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		rec = domain.NewDeposit(gc.Identity.ID, amount, idempotencyKey)
		return s.recorder.Record(tx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("identity_id", gc.Identity.ID.String()).
		Str("transaction_id", rec.ID.String()).
		Str("amount", amount.String()).
		Msg("Deposit completed")

	return &Receipt{ID: rec.ID, Amount: rec.Amount}, nil
}

// Withdraw removes amount from the caller's account and records it. Fails
// with domain.ErrInsufficientBalance when the balance cannot cover amount;
// withdrawing the exact balance succeeds and leaves zero.
func (s *Service) Withdraw(ctx context.Context, identity *domain.Identity, amount decimal.Decimal, pin, idempotencyKey string) (*Receipt, error) {
	if err := s.guard.Claim(ctx, idempotencyKey); err != nil {
		return nil, err
	}
	gc, err := s.gate.RequireSecret(ctx, identity, pin)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateOperationAmount(amount); err != nil {
		return nil, err
	}

	var rec *domain.Transaction
	err = s.atomicWithRetry(ctx, func(tx store.Tx) error {
		account, err := s.accountOf(tx, gc.Identity)
		if err != nil {
			return err
		}
		if err := account.Withdraw(amount); err != nil {
			return err
		}
		if err := tx.PutAccount(account); err != nil {
			return err
		}
		rec = domain.NewWithdrawal(gc.Identity.ID, amount, idempotencyKey)
		return s.recorder.Record(tx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("identity_id", gc.Identity.ID.String()).
		Str("transaction_id", rec.ID.String()).
		Str("amount", amount.String()).
		Msg("Withdrawal completed")

	return &Receipt{ID: rec.ID, Amount: rec.Amount}, nil
}

// AccountDetail returns the caller's account summary. Read-only, no PIN.
func (s *Service) AccountDetail(ctx context.Context, identity *domain.Identity) (*AccountSummary, error) {
	gc, err := s.gate.ResolveContext(ctx, identity, "")
	if err != nil {
		return nil, err
	}
	return &AccountSummary{
		ID:         gc.Account.ID,
		Balance:    gc.Account.Balance,
		FullName:   gc.Identity.FullName(),
		PublicCode: gc.Identity.PublicCode,
		CreatedAt:  gc.Account.CreatedAt,
	}, nil
}

// History returns one page of the caller's transaction history, newest
// first. Page numbering is zero-based.
func (s *Service) History(ctx context.Context, identity *domain.Identity, page int) (*HistoryPage, error) {
	if identity == nil {
		return nil, domain.ErrNotAuthenticated
	}
	if page < 0 {
		page = 0
	}

	result := &HistoryPage{Page: page, PageSize: HistoryPageSize}
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		records, total, err := tx.TransactionsByIdentity(identity.ID, page*HistoryPageSize, HistoryPageSize)
		if err != nil {
			return err
		}
		result.Total = total
		result.TotalPages = (total + HistoryPageSize - 1) / HistoryPageSize
		result.Entries = make([]*HistoryEntry, 0, len(records))
		for _, rec := range records {
			entry, err := historyEntry(tx, rec)
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// historyEntry maps a record to its outward form, resolving party names.
// The tagged union is matched exhaustively.
func historyEntry(tx store.Tx, rec *domain.Transaction) (*HistoryEntry, error) {
	entry := &HistoryEntry{
		ID:        rec.ID,
		Type:      string(rec.Kind),
		Amount:    rec.Amount,
		CreatedAt: rec.CreatedAt,
	}
	switch rec.Kind {
	case domain.KindDeposit, domain.KindWithdrawal:
		owner, err := tx.IdentityByID(rec.OwnerID)
		if err != nil {
			return nil, err
		}
		entry.Owner = owner.FullName()
	case domain.KindTransfer:
		sender, err := tx.IdentityByID(rec.SenderID)
		if err != nil {
			return nil, err
		}
		receiver, err := tx.IdentityByID(rec.ReceiverID)
		if err != nil {
			return nil, err
		}
		entry.From = sender.FullName()
		entry.To = receiver.FullName()
	default:
		return nil, fmt.Errorf("unknown transaction kind %q", rec.Kind)
	}
	return entry, nil
}

// accountOf re-reads the caller's account inside the current unit so the
// version seen at commit is the version validated against.
func (s *Service) accountOf(tx store.Tx, identity *domain.Identity) (*domain.Account, error) {
	account, err := tx.AccountByOwner(identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("identity %s: %w", identity.ID, domain.ErrAccountMissing)
		}
		return nil, err
	}
	return account, nil
}
