package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is a registered machine. DeviceID is the business identifier
// devices report with, unique within a tenant.
type Device struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID  string    `gorm:"not null;uniqueIndex:ux_devices_tenant_device,priority:1" json:"tenant_id"`
	FactoryID string    `gorm:"not null" json:"factory_id"`
	DeviceID  string    `gorm:"not null;uniqueIndex:ux_devices_tenant_device,priority:2" json:"device_id"`
	Name      string    `json:"name"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return
}

type Factory struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TenantID  string    `gorm:"not null;index" json:"tenant_id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Factory) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return
}
