package ledger

import (
	"context"
	"strings"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// Guard makes retried mutating requests safe. Claim is a fast-fail
// precheck; the definitive claim is the transaction record insert, which the
// store performs in the same durability unit as the balance mutation so two
// concurrent retries can never both pass.
type Guard struct {
	store store.Store
}

// NewGuard creates an idempotency guard over the store.
func NewGuard(st store.Store) *Guard {
	return &Guard{store: st}
}

// Claim rejects empty keys with domain.ErrMissingIdempotencyKey and
// already-used keys with domain.ErrDuplicateOperation. A duplicate is a
// benign replay signal: the caller should treat it as "already completed".
func (g *Guard) Claim(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return domain.ErrMissingIdempotencyKey
	}

	return g.store.Atomic(ctx, func(tx store.Tx) error {
		used, err := tx.HasIdempotencyKey(key)
		if err != nil {
			return err
		}
		if used {
			return domain.ErrDuplicateOperation
		}
		return nil
	})
}

// IsClaimed is a non-throwing existence check for diagnostic and read paths.
// It must not gate a mutation: the answer can be stale by the time the
// mutation runs.
func (g *Guard) IsClaimed(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, nil
	}
	var used bool
	err := g.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		used, err = tx.HasIdempotencyKey(key)
		return err
	})
	return used, err
}
