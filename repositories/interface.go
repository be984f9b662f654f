package repositories

import (
	"context"
	"errors"
	"time"

	"iot-monitor/entities"
)

// ErrDuplicateSession is returned by SessionRepository.Create when a session with
// the same (device_id, start_time, stop_time) is already stored.
var ErrDuplicateSession = errors.New("session already exists")

// SessionAggregate holds the SQL aggregates over a range of sessions.
type SessionAggregate struct {
	SessionCount    int64
	TotalDurationMs int64
	MinDurationMs   int64
	MaxDurationMs   int64
}

type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByKey(ctx context.Context, deviceID string, start, stop time.Time) (*entities.Session, error)
	CountInRange(ctx context.Context, tenantID, deviceID string, from, to time.Time) (int64, error)
	Aggregate(ctx context.Context, tenantID, deviceID string, from, to time.Time) (SessionAggregate, error)
	// StreamInRange calls fn for every session ordered by start_time ascending
	// without loading the range into memory. fn must not use the repository.
	StreamInRange(ctx context.Context, tenantID, deviceID string, from, to time.Time, fn func(*entities.Session) error) error
	ListByDevice(ctx context.Context, filter SessionFilter) ([]entities.Session, int64, error)
}

type SessionFilter struct {
	TenantID string
	DeviceID string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// ExportResult carries the columns written when a job completes.
type ExportResult struct {
	FilePath    string
	FileSize    int64
	RecordCount int64
	CompletedAt time.Time
	ExpiresAt   time.Time
}

type ExportJobRepository interface {
	Create(ctx context.Context, job *entities.ExportJob) error
	GetByID(ctx context.Context, id string) (*entities.ExportJob, error)
	GetForOwner(ctx context.Context, tenantID, userID, id string) (*entities.ExportJob, error)
	ListForOwner(ctx context.Context, tenantID, userID string, limit, offset int) ([]entities.ExportJob, int64, error)
	// MarkProcessing moves a pending job to processing and reports whether it did.
	MarkProcessing(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string, result ExportResult) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
	ListExpiredArtifacts(ctx context.Context, now time.Time, limit int) ([]entities.ExportJob, error)
	ClearArtifact(ctx context.Context, id string) error
}

type DeviceRepository interface {
	CreateFactory(ctx context.Context, factory *entities.Factory) error
	Create(ctx context.Context, device *entities.Device) error
	// ResolveDevice returns nil when the tenant has no device with that business id.
	ResolveDevice(ctx context.Context, tenantID, deviceID string) (*entities.Device, error)
	// GetFactoryName returns "" when the factory is unknown.
	GetFactoryName(ctx context.Context, factoryID string) (string, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *entities.AuditLog) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]entities.AuditLog, error)
}
