// Package jobs defines the asynchronous work the ledger offloads from the
// request path, currently monthly statement exports, together with the
// queue and status-store abstractions they run on.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of work a job carries.
type JobType string

const (
	// JobTypeExportStatement produces a monthly statement file from the
	// archive and uploads it to object storage.
	JobTypeExportStatement JobType = "export_statement"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ExportStatementJob asks the worker to build one identity's statement for
// one calendar month and upload it.
type ExportStatementJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// IdentityID is the identity whose transactions are exported.
	IdentityID uuid.UUID `json:"identity_id"`

	// Month is the statement month in YYYY-MM form.
	Month string `json:"month"`

	// StatementURI is the object-storage URI of the finished statement,
	// set on completion.
	StatementURI string `json:"statement_uri,omitempty"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the last failure message, if any.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is the generic view the queue machinery needs.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExportStatementJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExportStatementJob) GetType() JobType {
	return JobTypeExportStatement
}

// GetStatus implements the Job interface.
func (j *ExportStatementJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues jobs. The abstraction allows swapping the in-memory
// queue for Cloud Tasks or Pub/Sub without touching callers.
type Publisher interface {
	// PublishExportStatement enqueues a statement export job.
	PublishExportStatement(ctx context.Context, job *ExportStatementJob) error

	// Close releases the publisher's resources.
	Close() error
}

// Consumer pulls jobs off the queue and hands them to a handler.
type Consumer interface {
	// Start begins consuming; handler runs once per delivered job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop drains in-flight jobs and shuts the consumer down.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job status so clients can poll for completion.
type JobStore interface {
	// SaveJob inserts or replaces a job's state.
	SaveJob(ctx context.Context, job *ExportStatementJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExportStatementJob, error)

	// ListJobs retrieves jobs matching the filter.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportStatementJob, error)

	// UpdateJobStatus updates a job's status and error message.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	// IdentityID filters jobs by the identity they export.
	IdentityID uuid.UUID

	// Status filters jobs by lifecycle state.
	Status JobStatus

	Limit  int
	Offset int
}
