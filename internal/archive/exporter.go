package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/jobs"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
)

// exportBatchSize is how many ledger records are read per store round-trip
// while collecting a month.
const exportBatchSize = 100

// Statement is the rendered monthly statement uploaded to object storage.
type Statement struct {
	IdentityID  string            `json:"identity_id"`
	FullName    string            `json:"full_name"`
	Month       string            `json:"month"`
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     []*StatementEntry `json:"entries"`
	Count       int               `json:"count"`
}

// StatementEntry is one transaction line on a statement.
type StatementEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Exporter builds monthly statements: it reads the identity's transactions
// for the month from the ledger store, appends them to the analytics
// archive, and uploads a JSON statement.
type Exporter struct {
	store      store.Store
	archiver   Archiver
	statements StatementWriter
	log        zerolog.Logger
}

// NewExporter creates a statement exporter.
func NewExporter(st store.Store, archiver Archiver, statements StatementWriter, log zerolog.Logger) *Exporter {
	return &Exporter{
		store:      st,
		archiver:   archiver,
		statements: statements,
		log:        log,
	}
}

// Handle adapts the exporter to the jobs queue. It runs one
// ExportStatementJob and records the statement URI on the job.
func (e *Exporter) Handle(ctx context.Context, job jobs.Job) error {
	export, ok := job.(*jobs.ExportStatementJob)
	if !ok {
		return fmt.Errorf("unexpected job type %q", job.GetType())
	}

	uri, err := e.ExportMonth(ctx, export.IdentityID, export.Month)
	if err != nil {
		return err
	}
	export.StatementURI = uri
	return nil
}

// ExportMonth exports one identity's transactions for month (YYYY-MM) and
// returns the statement URI.
func (e *Exporter) ExportMonth(ctx context.Context, identityID uuid.UUID, month string) (string, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: %w", month, err)
	}
	end := start.AddDate(0, 1, 0)

	var identity *domain.Identity
	var records []*domain.Transaction
	err = e.store.Atomic(ctx, func(tx store.Tx) error {
		identity, err = tx.IdentityByID(identityID)
		if err != nil {
			return fmt.Errorf("loading identity %s: %w", identityID, err)
		}
		records, err = monthRecords(tx, identityID, start, end)
		return err
	})
	if err != nil {
		return "", err
	}

	rows := make([]*Row, 0, len(records))
	entries := make([]*StatementEntry, 0, len(records))
	for _, rec := range records {
		rows = append(rows, RowFromTransaction(rec))
		entries = append(entries, &StatementEntry{
			ID:        rec.ID.String(),
			Kind:      string(rec.Kind),
			Amount:    rec.Amount.StringFixed(2),
			CreatedAt: rec.CreatedAt,
		})
	}

	if err := e.archiver.InsertRecords(ctx, rows); err != nil {
		return "", fmt.Errorf("archiving %d records: %w", len(rows), err)
	}

	statement := &Statement{
		IdentityID:  identity.ID.String(),
		FullName:    identity.FullName(),
		Month:       month,
		GeneratedAt: time.Now().UTC(),
		Entries:     entries,
		Count:       len(entries),
	}
	data, err := json.MarshalIndent(statement, "", "  ")
	if err != nil {
		return "", fmt.Errorf("rendering statement: %w", err)
	}

	objectName := fmt.Sprintf("statements/%s/%s.json", identity.ID, month)
	uri, err := e.statements.WriteStatement(ctx, objectName, data)
	if err != nil {
		return "", fmt.Errorf("uploading statement: %w", err)
	}

	e.log.Info().
		Str("identity_id", identity.ID.String()).
		Str("month", month).
		Int("entries", len(entries)).
		Str("uri", uri).
		Msg("Statement exported")

	return uri, nil
}

// monthRecords pages through the identity's history and keeps the records
// created within [start, end). History is newest first, so paging stops as
// soon as a record predates the month.
func monthRecords(tx store.Tx, identityID uuid.UUID, start, end time.Time) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for offset := 0; ; offset += exportBatchSize {
		batch, _, err := tx.TransactionsByIdentity(identityID, offset, exportBatchSize)
		if err != nil {
			return nil, err
		}
		for _, rec := range batch {
			if !rec.CreatedAt.Before(end) {
				continue
			}
			if rec.CreatedAt.Before(start) {
				return out, nil
			}
			out = append(out, rec)
		}
		if len(batch) < exportBatchSize {
			return out, nil
		}
	}
}
