package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"iot-monitor/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*entities.AuditLog
	err     error
}

func (m *mockAuditRepo) Create(_ context.Context, entry *entities.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByTenant(_ context.Context, _ string, _ int) ([]entities.AuditLog, error) {
	return nil, nil
}

func TestLogger_Record(t *testing.T) {
	repo := &mockAuditRepo{}
	l := NewLogger(repo, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	l.Record(ctx, Event{
		TenantID:     "tenant-a",
		ActorID:      "dev-uuid",
		ActorType:    entities.ActorDevice,
		Action:       "session.ingest",
		ResourceType: "device_session",
		ResourceID:   "session-1",
		Details:      map[string]interface{}{"device_id": "DEV-1", "duration_ms": 5400000},
	})
	cancel()
	l.Wait()

	require.Len(t, repo.entries, 1)
	got := repo.entries[0]
	assert.Equal(t, "session.ingest", got.Action)
	assert.Equal(t, entities.ActorDevice, got.ActorType)
	assert.False(t, got.Timestamp.IsZero())

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(got.Details), &details))
	assert.Equal(t, "DEV-1", details["device_id"])
}

func TestLogger_FailureIsLoggedOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := NewLogger(&mockAuditRepo{err: errors.New("db down")}, zap.New(core))

	l.Record(context.Background(), Event{TenantID: "t", Action: "export.complete"})
	l.Wait()

	assert.Equal(t, 1, logs.FilterMessage("audit write failed").Len())
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Record(context.Background(), Event{}) })
}
