package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvoloshyn/pocket-money/internal/jobs"
)

func TestJobStore_SaveAndGet(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	job := &jobs.ExportStatementJob{
		JobID:      "j1",
		IdentityID: uuid.New(),
		Month:      "2026-06",
		Status:     jobs.JobStatusPending,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, st.SaveJob(ctx, job))

	// Later caller mutations must not leak into the store.
	job.Status = jobs.JobStatusFailed

	saved, err := st.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, saved.Status)

	_, err = st.GetJob(ctx, "missing")
	assert.Error(t, err)

	err = st.SaveJob(ctx, &jobs.ExportStatementJob{})
	assert.Error(t, err, "job ID is required")
}

func TestJobStore_ListJobs(t *testing.T) {
	st := NewStore()
	ctx := context.Background()
	mine, theirs := uuid.New(), uuid.New()

	base := time.Now()
	for i, seed := range []struct {
		id       string
		identity uuid.UUID
		status   jobs.JobStatus
	}{
		{"j1", mine, jobs.JobStatusCompleted},
		{"j2", mine, jobs.JobStatusPending},
		{"j3", theirs, jobs.JobStatusPending},
	} {
		require.NoError(t, st.SaveJob(ctx, &jobs.ExportStatementJob{
			JobID:      seed.id,
			IdentityID: seed.identity,
			Status:     seed.status,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Newest first, scoped to one identity.
	result, err := st.ListJobs(ctx, jobs.JobFilter{IdentityID: mine})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "j2", result[0].JobID)
	assert.Equal(t, "j1", result[1].JobID)

	result, err = st.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending})
	require.NoError(t, err)
	require.Len(t, result, 2)

	result, err = st.ListJobs(ctx, jobs.JobFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "j2", result[0].JobID)

	result, err = st.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestJobStore_UpdateJobStatus(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	require.NoError(t, st.SaveJob(ctx, &jobs.ExportStatementJob{
		JobID:     "j1",
		Status:    jobs.JobStatusPending,
		CreatedAt: time.Now(),
	}))

	require.NoError(t, st.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"))

	saved, err := st.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, saved.Status)
	assert.Equal(t, "boom", saved.Error)

	assert.Error(t, st.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""))
}
