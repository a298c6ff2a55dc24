package ledger

import (
	"errors"
	"fmt"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// Recorder appends immutable transaction records. It runs inside the same
// durability unit as the balance mutation it documents; the unique
// idempotency key on the insert doubles as the atomic claim.
type Recorder struct{}

// Record inserts rec within tx, translating the store's duplicate-key
// failure into the domain's duplicate-operation conflict.
func (Recorder) Record(tx store.Tx, rec *domain.Transaction) error {
	if err := tx.InsertTransaction(rec); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return domain.ErrDuplicateOperation
		}
		return fmt.Errorf("recording %s transaction: %w", rec.Kind, err)
	}
	return nil
}
