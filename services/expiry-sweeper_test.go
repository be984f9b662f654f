package services

import (
	"context"
	"testing"
	"time"

	"iot-monitor/entities"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExpirySweeper_RemovesExpiredArtifacts(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t, afero.NewMemMapFs(), 1)
	f.addSessions(t, 1)

	expiring := f.newJob(t, "DEV-1", entities.ExportCSV)
	require.NoError(t, f.proc.Process(ctx, expiring.ID))

	f.now = f.now.Add(30 * time.Minute)
	fresh := f.newJob(t, "DEV-1", entities.ExportCSV)
	require.NoError(t, f.proc.Process(ctx, fresh.ID))

	old, err := f.jobs.GetByID(ctx, expiring.ID)
	require.NoError(t, err)
	oldPath := old.FilePath

	sweeper := NewExpirySweeper(f.jobs, f.store, "@every 10m", zap.NewNop())
	sweeper.now = func() time.Time { return f.now.Add(31 * time.Minute) }

	removed, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, f.store.Exists(oldPath))

	old, err = f.jobs.GetByID(ctx, expiring.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ExportCompleted, old.Status)
	assert.Empty(t, old.FilePath)

	kept, err := f.jobs.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, f.store.Exists(kept.FilePath))

	removed, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestExpirySweeper_StartRejectsBadSchedule(t *testing.T) {
	f := newProcessorFixture(t, afero.NewMemMapFs(), 1)
	sweeper := NewExpirySweeper(f.jobs, f.store, "not a schedule", zap.NewNop())
	assert.Error(t, sweeper.Start())

	ok := NewExpirySweeper(f.jobs, f.store, "@every 1h", zap.NewNop())
	require.NoError(t, ok.Start())
	<-ok.Stop().Done()
}
