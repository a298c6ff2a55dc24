package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// transferState tracks the orchestration through its lifecycle. Any failure
// before the credit aborts with no persisted state; once the credit commits
// the transfer must complete, and a failure recording it is fatal and
// reported, never rolled back.
type transferState string

const (
	transferInitiated transferState = "INITIATED"
	transferValidated transferState = "VALIDATED"
	transferDebited   transferState = "DEBITED"
	transferCredited  transferState = "CREDITED"
	transferRecorded  transferState = "RECORDED"
)

// Transfer moves amount from the caller's account to the identity addressed
// by receiverPublicCode. The sender debit and receiver credit are
// independent optimistic-concurrency units; the credit and the transfer
// record share one unit so the idempotency claim and the record can never
// be split.
func (s *Service) Transfer(ctx context.Context, identity *domain.Identity, receiverPublicCode string, amount decimal.Decimal, pin, idempotencyKey string) (*Receipt, error) {
	state := transferInitiated

	if err := s.guard.Claim(ctx, idempotencyKey); err != nil {
		return nil, err
	}
	gc, err := s.gate.RequireSecret(ctx, identity, pin)
	if err != nil {
		return nil, err
	}

	// Validate: amount ceiling, receiver resolution, self-transfer. No
	// balance has changed yet, so every failure here is a clean abort.
	if err := domain.ValidateOperationAmount(amount); err != nil {
		return nil, err
	}

	var receiver *domain.Identity
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		receiver, err = tx.IdentityByPublicCode(receiverPublicCode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrReceiverNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if receiver.ID == gc.Identity.ID {
		return nil, domain.ErrSelfTransfer
	}
	state = transferValidated

	// Debit leg. An insufficient balance aborts with nothing persisted.
	err = s.atomicWithRetry(ctx, func(tx store.Tx) error {
		sender, err := s.accountOf(tx, gc.Identity)
		if err != nil {
			return err
		}
		if err := sender.Withdraw(amount); err != nil {
			return err
		}
		return tx.PutAccount(sender)
	})
	if err != nil {
		return nil, err
	}
	state = transferDebited

	// Credit leg plus record, one unit. From here the money has left the
	// sender: a failure is not retried as a whole transfer (that would
	// risk double-crediting) and is surfaced for manual reconciliation.
	var rec *domain.Transaction
	err = s.atomicWithRetry(ctx, func(tx store.Tx) error {
		credited, err := tx.AccountByOwner(receiver.ID)
		if err != nil {
			return err
		}
		if err := credited.Deposit(amount); err != nil {
			return err
		}
		if err := tx.PutAccount(credited); err != nil {
			return err
		}
		state = transferCredited
		rec = domain.NewTransfer(gc.Identity.ID, receiver.ID, amount, idempotencyKey)
		return s.recorder.Record(tx, rec)
	})
	if err != nil {
		s.log.Error().
			Err(err).
			Str("state", string(state)).
			Str("sender_id", gc.Identity.ID.String()).
			Str("receiver_id", receiver.ID.String()).
			Str("amount", amount.String()).
			Str("idempotency_key", idempotencyKey).
			Msg("Transfer failed after debit, manual reconciliation required")
		return nil, fmt.Errorf("crediting receiver after debit: %w", domain.ErrReconciliationRequired)
	}
	state = transferRecorded

	s.log.Info().
		Str("state", string(state)).
		Str("transaction_id", rec.ID.String()).
		Str("sender_id", gc.Identity.ID.String()).
		Str("receiver_id", receiver.ID.String()).
		Str("amount", amount.String()).
		Msg("Transfer completed")

	return &Receipt{ID: rec.ID, Amount: rec.Amount}, nil
}
