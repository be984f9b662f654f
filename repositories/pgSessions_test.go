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

var t0 = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

func newSession(deviceID string, start time.Time, d time.Duration) *entities.Session {
	return &entities.Session{
		TenantID:   "tenant-a",
		FactoryID:  "factory-1",
		DeviceID:   deviceID,
		StartTime:  start,
		StopTime:   start.Add(d),
		DurationMs: d.Milliseconds(),
	}
}

func TestSessionRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionPgRepository(testutil.NewDB(t))

	first := newSession("DEV-1", t0, time.Hour)
	require.NoError(t, repo.Create(ctx, first))
	require.NotEmpty(t, first.ID)

	second := newSession("DEV-1", t0, time.Hour)
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateSession)

	got, err := repo.GetByKey(ctx, "DEV-1", t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, int64(3600000), got.DurationMs)
}

func TestSessionRepository_SameTimesOtherDevice(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionPgRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(ctx, newSession("DEV-1", t0, time.Hour)))
	require.NoError(t, repo.Create(ctx, newSession("DEV-2", t0, time.Hour)))
}

func TestSessionRepository_AggregateAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionPgRepository(testutil.NewDB(t))

	for i, d := range []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour} {
		require.NoError(t, repo.Create(ctx, newSession("DEV-1", t0.Add(time.Duration(i)*4*time.Hour), d)))
	}
	// outside the range
	require.NoError(t, repo.Create(ctx, newSession("DEV-1", t0.AddDate(0, 0, 3), time.Hour)))

	from, to := t0, t0.Add(24*time.Hour)
	count, err := repo.CountInRange(ctx, "tenant-a", "DEV-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	agg, err := repo.Aggregate(ctx, "tenant-a", "DEV-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, SessionAggregate{
		SessionCount:    3,
		TotalDurationMs: 21600000,
		MinDurationMs:   3600000,
		MaxDurationMs:   10800000,
	}, agg)

	other, err := repo.Aggregate(ctx, "tenant-b", "DEV-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, SessionAggregate{}, other)
}

func TestSessionRepository_RangeIsInclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionPgRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, newSession("DEV-1", t0, time.Minute)))

	count, err := repo.CountInRange(ctx, "tenant-a", "DEV-1", t0, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSessionRepository_StreamInRangeOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionPgRepository(testutil.NewDB(t))

	starts := []time.Time{t0.Add(5 * time.Hour), t0, t0.Add(2 * time.Hour)}
	for _, s := range starts {
		require.NoError(t, repo.Create(ctx, newSession("DEV-1", s, time.Minute)))
	}

	var got []time.Time
	err := repo.StreamInRange(ctx, "tenant-a", "DEV-1", t0, t0.Add(24*time.Hour), func(s *entities.Session) error {
		got = append(got, s.StartTime.UTC())
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Equal(t0))
	assert.True(t, got[1].Equal(t0.Add(2*time.Hour)))
	assert.True(t, got[2].Equal(t0.Add(5*time.Hour)))
}

func TestSessionRepository_StreamStopsOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionPgRepository(testutil.NewDB(t))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newSession("DEV-1", t0.Add(time.Duration(i)*time.Hour), time.Minute)))
	}

	calls := 0
	stop := assert.AnError
	err := repo.StreamInRange(ctx, "tenant-a", "DEV-1", t0, t0.Add(24*time.Hour), func(*entities.Session) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestSessionRepository_ListByDevice(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionPgRepository(testutil.NewDB(t))
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newSession("DEV-1", t0.Add(time.Duration(i)*time.Hour), time.Minute)))
	}

	sessions, total, err := repo.ListByDevice(ctx, SessionFilter{TenantID: "tenant-a", DeviceID: "DEV-1", Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].StartTime.Equal(t0.Add(4*time.Hour)))

	from := t0.Add(3 * time.Hour)
	sessions, total, err = repo.ListByDevice(ctx, SessionFilter{TenantID: "tenant-a", DeviceID: "DEV-1", From: &from, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, sessions, 2)
}
