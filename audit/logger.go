// Package audit records who did what to which resource. Writes are best effort
// and never fail the operation that triggered them.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"iot-monitor/entities"
	"iot-monitor/repositories"

	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Event is one auditable action.
type Event struct {
	TenantID     string
	ActorID      string
	ActorType    string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]interface{}
	IPAddress    string
}

// Recorder is the write side the usecases depend on.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type Logger struct {
	repo   repositories.AuditLogRepository
	logger *zap.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewLogger(repo repositories.AuditLogRepository, logger *zap.Logger) *Logger {
	return &Logger{repo: repo, logger: logger, now: time.Now}
}

// Record persists the event in the background and returns immediately.
// The caller's context only contributes values; its cancellation is ignored.
func (l *Logger) Record(ctx context.Context, event Event) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &entities.AuditLog{
		TenantID:     event.TenantID,
		ActorID:      event.ActorID,
		ActorType:    event.ActorType,
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      "{}",
		IPAddress:    event.IPAddress,
		Timestamp:    l.now().UTC(),
	}
	if len(event.Details) > 0 {
		if b, err := json.Marshal(event.Details); err == nil {
			entry.Details = string(b)
		}
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := l.repo.Create(writeCtx, entry); err != nil {
			l.logger.Warn("audit write failed",
				zap.String("action", entry.Action),
				zap.String("resource_id", entry.ResourceID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every pending write has finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}
