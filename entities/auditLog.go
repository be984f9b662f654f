package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActorUser   = "user"
	ActorDevice = "device"
	ActorSystem = "system"
)

type AuditLog struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID     string    `gorm:"not null;index:idx_audit_logs_tenant_ts,priority:1" json:"tenant_id"`
	ActorID      string    `json:"actor_id"`
	ActorType    string    `gorm:"type:varchar(16);not null" json:"actor_type"`
	Action       string    `gorm:"not null" json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `gorm:"type:text" json:"details"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Timestamp    time.Time `gorm:"not null;index:idx_audit_logs_tenant_ts,priority:2" json:"timestamp"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return
}
