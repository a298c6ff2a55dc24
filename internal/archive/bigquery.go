package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// Archiver is the analytics sink for completed transactions.
type Archiver interface {
	// InsertRecords appends rows to the archive.
	InsertRecords(ctx context.Context, rows []*Row) error

	// RecordsByIdentity returns the archived rows touching the identity
	// within [start, end], ordered by transaction date.
	RecordsByIdentity(ctx context.Context, identityID string, start, end string) ([]*Row, error)
}

// BigQueryArchive implements Archiver on a BigQuery dataset.
type BigQueryArchive struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQueryArchive wraps an existing client. The caller owns the client's
// lifecycle.
func NewBigQueryArchive(client *bigquery.Client, projectID, datasetID string) *BigQueryArchive {
	return &BigQueryArchive{client: client, projectID: projectID, datasetID: datasetID}
}

// InsertRecords appends rows to the archive transactions table.
func (a *BigQueryArchive) InsertRecords(ctx context.Context, rows []*Row) error {
	if len(rows) == 0 {
		return nil
	}

	table := a.client.DatasetInProject(a.projectID, a.datasetID).Table(transactionsTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertRecords: inserting rows: %w", err)
	}

	return nil
}

// RecordsByIdentity returns archived rows where the identity is the owner,
// sender, or receiver, within the inclusive date range. Dates are
// YYYY-MM-DD strings.
func (a *BigQueryArchive) RecordsByIdentity(ctx context.Context, identityID string, start, end string) ([]*Row, error) {
	q := a.client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.kind,
			t.idempotency_key,
			t.owner_id,
			t.sender_id,
			t.receiver_id,
			t.transaction_date,
			t.amount,
			t.currency,
			t.created_ts
		FROM %s.transactions t
		WHERE (t.owner_id = @identity_id
		   OR t.sender_id = @identity_id
		   OR t.receiver_id = @identity_id)
		  AND t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		ORDER BY t.transaction_date, t.created_ts
	`, a.datasetID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "identity_id", Value: identityID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("RecordsByIdentity: query read: %w", err)
	}

	var rows []*Row
	for {
		var r Row
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("RecordsByIdentity: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

var _ Archiver = (*BigQueryArchive)(nil)
