// Package archive appends completed ledger transactions to a BigQuery
// analytics dataset and renders monthly statements into Cloud Storage. It
// is strictly downstream of the ledger: nothing here can move money.
package archive

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvoloshyn/pocket-money/internal/domain"
)

// Row is one archived transaction in the ledger_archive.transactions table.
type Row struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	Kind           string `bigquery:"kind"`            // REQUIRED
	IdempotencyKey string `bigquery:"idempotency_key"` // REQUIRED

	OwnerID    bigquery.NullString `bigquery:"owner_id"`    // NULLABLE (deposit/withdrawal)
	SenderID   bigquery.NullString `bigquery:"sender_id"`   // NULLABLE (transfer)
	ReceiverID bigquery.NullString `bigquery:"receiver_id"` // NULLABLE (transfer)

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// defaultCurrency is the single currency the ledger operates in.
const defaultCurrency = "EUR"

// RowFromTransaction maps a ledger record to its archive row.
func RowFromTransaction(rec *domain.Transaction) *Row {
	row := &Row{
		TransactionID:   rec.ID.String(),
		Kind:            string(rec.Kind),
		IdempotencyKey:  rec.IdempotencyKey,
		TransactionDate: civil.DateOf(rec.CreatedAt),
		Amount:          rec.Amount.Rat(),
		Currency:        defaultCurrency,
		CreatedTS:       rec.CreatedAt,
	}
	switch rec.Kind {
	case domain.KindTransfer:
		row.SenderID = bigquery.NullString{StringVal: rec.SenderID.String(), Valid: true}
		row.ReceiverID = bigquery.NullString{StringVal: rec.ReceiverID.String(), Valid: true}
	default:
		row.OwnerID = bigquery.NullString{StringVal: rec.OwnerID.String(), Valid: true}
	}
	return row
}
