package repositories

import (
	"context"
	"testing"
	"time"

	"iot-monitor/entities"
	"iot-monitor/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(userID string, createdAt time.Time) *entities.ExportJob {
	return &entities.ExportJob{
		TenantID:  "tenant-a",
		UserID:    userID,
		DeviceID:  "DEV-1",
		Format:    entities.ExportCSV,
		DateFrom:  t0,
		DateTo:    t0.Add(24 * time.Hour),
		CreatedAt: createdAt,
	}
}

func TestExportJobRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	repo := NewExportJobPgRepository(testutil.NewDB(t))

	job := newJob("user-1", t0)
	require.NoError(t, repo.Create(ctx, job))
	assert.Equal(t, entities.ExportPending, job.Status)

	ok, err := repo.MarkProcessing(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkProcessing(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must not succeed")

	done := t0.Add(time.Minute)
	require.NoError(t, repo.MarkCompleted(ctx, job.ID, ExportResult{
		FilePath:    "/tmp/export.csv",
		FileSize:    42,
		RecordCount: 3,
		CompletedAt: done,
		ExpiresAt:   done.Add(time.Hour),
	}))

	// terminal states are final
	require.NoError(t, repo.MarkFailed(ctx, job.ID, "late failure", done))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ExportCompleted, got.Status)
	assert.Equal(t, int64(3), got.RecordCount)
	assert.Equal(t, int64(42), got.FileSize)
	assert.Empty(t, got.ErrorMessage)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(done.Add(time.Hour)))
}

func TestExportJobRepository_FailedOnlyFromProcessing(t *testing.T) {
	ctx := context.Background()
	repo := NewExportJobPgRepository(testutil.NewDB(t))

	job := newJob("user-1", t0)
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, repo.MarkFailed(ctx, job.ID, "boom", t0))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ExportPending, got.Status)

	_, err = repo.MarkProcessing(ctx, job.ID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, job.ID, "boom", t0))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ExportFailed, got.Status)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)
}

func TestExportJobRepository_OwnerScope(t *testing.T) {
	ctx := context.Background()
	repo := NewExportJobPgRepository(testutil.NewDB(t))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newJob("user-1", t0.Add(time.Duration(i)*time.Minute))))
	}
	theirs := newJob("user-2", t0)
	require.NoError(t, repo.Create(ctx, theirs))

	jobs, total, err := repo.ListForOwner(ctx, "tenant-a", "user-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, jobs, 2)
	assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))

	_, err = repo.GetForOwner(ctx, "tenant-a", "user-1", theirs.ID)
	assert.Error(t, err)
	_, err = repo.GetForOwner(ctx, "tenant-b", "user-2", theirs.ID)
	assert.Error(t, err)
	got, err := repo.GetForOwner(ctx, "tenant-a", "user-2", theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, theirs.ID, got.ID)
}

func TestExportJobRepository_ExpiredArtifacts(t *testing.T) {
	ctx := context.Background()
	repo := NewExportJobPgRepository(testutil.NewDB(t))

	complete := func(expires time.Time) string {
		job := newJob("user-1", t0)
		require.NoError(t, repo.Create(ctx, job))
		_, err := repo.MarkProcessing(ctx, job.ID)
		require.NoError(t, err)
		require.NoError(t, repo.MarkCompleted(ctx, job.ID, ExportResult{
			FilePath: "/exports/" + job.ID, CompletedAt: t0, ExpiresAt: expires,
		}))
		return job.ID
	}
	expired := complete(t0.Add(time.Hour))
	complete(t0.Add(3 * time.Hour))

	now := t0.Add(2 * time.Hour)
	jobs, err := repo.ListExpiredArtifacts(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, expired, jobs[0].ID)

	require.NoError(t, repo.ClearArtifact(ctx, expired))
	jobs, err = repo.ListExpiredArtifacts(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	got, err := repo.GetByID(ctx, expired)
	require.NoError(t, err)
	assert.Equal(t, entities.ExportCompleted, got.Status)
}
