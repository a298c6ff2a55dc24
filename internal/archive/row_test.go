package archive

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dvoloshyn/pocket-money/internal/domain"
)

func TestRowFromTransaction_Deposit(t *testing.T) {
	owner := uuid.New()
	rec := &domain.Transaction{
		ID:             uuid.New(),
		Kind:           domain.KindDeposit,
		Amount:         decimal.RequireFromString("12.34"),
		IdempotencyKey: "k1",
		OwnerID:        owner,
		CreatedAt:      time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC),
	}

	row := RowFromTransaction(rec)
	assert.Equal(t, rec.ID.String(), row.TransactionID)
	assert.Equal(t, "DEPOSIT", row.Kind)
	assert.Equal(t, civil.Date{Year: 2026, Month: 6, Day: 3}, row.TransactionDate)
	assert.Equal(t, "EUR", row.Currency)

	assert.True(t, row.OwnerID.Valid)
	assert.Equal(t, owner.String(), row.OwnerID.StringVal)
	assert.False(t, row.SenderID.Valid)
	assert.False(t, row.ReceiverID.Valid)

	// NUMERIC round-trips through big.Rat without float drift.
	assert.Equal(t, "12.34", decimal.NewFromBigRat(row.Amount, 2).StringFixed(2))
}

func TestRowFromTransaction_Transfer(t *testing.T) {
	sender, receiver := uuid.New(), uuid.New()
	rec := &domain.Transaction{
		ID:             uuid.New(),
		Kind:           domain.KindTransfer,
		Amount:         decimal.RequireFromString("40.00"),
		IdempotencyKey: "k2",
		SenderID:       sender,
		ReceiverID:     receiver,
		CreatedAt:      time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC),
	}

	row := RowFromTransaction(rec)
	assert.False(t, row.OwnerID.Valid)
	assert.Equal(t, sender.String(), row.SenderID.StringVal)
	assert.Equal(t, receiver.String(), row.ReceiverID.StringVal)
}
