package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
	ExportJSON ExportFormat = "json"
)

func (f ExportFormat) Valid() bool {
	switch f {
	case ExportCSV, ExportXLSX, ExportJSON:
		return true
	}
	return false
}

type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ExportStatus) Terminal() bool {
	return s == ExportCompleted || s == ExportFailed
}

type ExportJob struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"export_id"`
	TenantID     string       `gorm:"not null;index:idx_export_jobs_owner,priority:1" json:"tenant_id"`
	UserID       string       `gorm:"not null;index:idx_export_jobs_owner,priority:2" json:"user_id"`
	DeviceID     string       `gorm:"not null" json:"device_id"`
	Format       ExportFormat `gorm:"type:varchar(8);not null" json:"format"`
	DateFrom     time.Time    `gorm:"not null" json:"date_from"`
	DateTo       time.Time    `gorm:"not null" json:"date_to"`
	Status       ExportStatus `gorm:"type:varchar(16);not null" json:"status"`
	RecordCount  int64        `json:"record_count"`
	FileSize     int64        `json:"file_size"`
	FilePath     string       `json:"-"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;index:idx_export_jobs_owner,priority:3" json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	ExpiresAt    *time.Time   `gorm:"index:idx_export_jobs_expires_at" json:"expires_at,omitempty"`
}

func (e *ExportJob) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = ExportPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return
}

// Downloadable reports whether the artifact may still be served at now.
func (e *ExportJob) Downloadable(now time.Time) bool {
	return e.Status == ExportCompleted && e.FilePath != "" &&
		e.ExpiresAt != nil && now.Before(*e.ExpiresAt)
}
