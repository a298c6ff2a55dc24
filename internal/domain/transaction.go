package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind discriminates the three transaction record variants.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindTransfer   TransactionKind = "TRANSFER"
)

// Transaction is an immutable append-only record of a completed money
// movement, a tagged union over the three kinds. Deposit and Withdrawal set
// OwnerID; Transfer sets SenderID and ReceiverID (which always differ).
// IdempotencyKey is globally unique across all kinds: a key used for a
// deposit can never be reused for a withdrawal or transfer. Records are
// never updated or deleted.
type Transaction struct {
	ID   uuid.UUID       `json:"id"`
	Kind TransactionKind `json:"kind"`

	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`

	OwnerID    uuid.UUID `json:"owner_id,omitempty"`
	SenderID   uuid.UUID `json:"sender_id,omitempty"`
	ReceiverID uuid.UUID `json:"receiver_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewDeposit builds a deposit record for owner.
func NewDeposit(owner uuid.UUID, amount decimal.Decimal, idempotencyKey string) *Transaction {
	return &Transaction{
		ID:             uuid.New(),
		Kind:           KindDeposit,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
		OwnerID:        owner,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewWithdrawal builds a withdrawal record for owner.
func NewWithdrawal(owner uuid.UUID, amount decimal.Decimal, idempotencyKey string) *Transaction {
	return &Transaction{
		ID:             uuid.New(),
		Kind:           KindWithdrawal,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
		OwnerID:        owner,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewTransfer builds a transfer record shared by sender and receiver.
func NewTransfer(sender, receiver uuid.UUID, amount decimal.Decimal, idempotencyKey string) *Transaction {
	return &Transaction{
		ID:             uuid.New(),
		Kind:           KindTransfer,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
		SenderID:       sender,
		ReceiverID:     receiver,
		CreatedAt:      time.Now().UTC(),
	}
}

// Involves reports whether id participates in the record, as owner for
// deposits and withdrawals or as either party for transfers.
func (t *Transaction) Involves(id uuid.UUID) bool {
	switch t.Kind {
	case KindTransfer:
		return t.SenderID == id || t.ReceiverID == id
	default:
		return t.OwnerID == id
	}
}
