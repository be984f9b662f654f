package repositories

import (
	"context"

	"iot-monitor/db"
	"iot-monitor/entities"
)

type auditLogPgRepository struct {
	db db.Database
}

func NewAuditLogPgRepository(database db.Database) AuditLogRepository {
	return &auditLogPgRepository{db: database}
}

func (r *auditLogPgRepository) Create(ctx context.Context, entry *entities.AuditLog) error {
	return r.db.GetDB().WithContext(ctx).Create(entry).Error
}

func (r *auditLogPgRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]entities.AuditLog, error) {
	var entries []entities.AuditLog
	err := r.db.GetDB().WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("timestamp DESC").Limit(limit).
		Find(&entries).Error
	return entries, err
}
