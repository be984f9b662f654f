package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one completed machine working period reported by a device.
// Rows are append-only; (device_id, start_time, stop_time) identifies a
// logical session across retries.
type Session struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"session_id"`
	TenantID   string    `gorm:"not null;index:idx_device_sessions_tenant_device_start,priority:1" json:"tenant_id"`
	FactoryID  string    `gorm:"not null" json:"factory_id"`
	DeviceID   string    `gorm:"not null;uniqueIndex:ux_device_sessions_idempotency,priority:1;index:idx_device_sessions_tenant_device_start,priority:2" json:"device_id"`
	StartTime  time.Time `gorm:"not null;uniqueIndex:ux_device_sessions_idempotency,priority:2;index:idx_device_sessions_tenant_device_start,priority:3" json:"start_time"`
	StopTime   time.Time `gorm:"not null;uniqueIndex:ux_device_sessions_idempotency,priority:3" json:"stop_time"`
	DurationMs int64     `gorm:"not null" json:"duration_ms"`
	IngestedAt time.Time `gorm:"not null" json:"ingested_at"`
}

func (Session) TableName() string { return "device_sessions" }

func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.IngestedAt.IsZero() {
		s.IngestedAt = time.Now().UTC()
	}
	return
}
