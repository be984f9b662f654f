package repositories

import (
	"context"
	"time"

	"iot-monitor/db"
	"iot-monitor/entities"

	"gorm.io/gorm"
)

type exportJobPgRepository struct {
	db db.Database
}

func NewExportJobPgRepository(database db.Database) ExportJobRepository {
	return &exportJobPgRepository{db: database}
}

func (r *exportJobPgRepository) Create(ctx context.Context, job *entities.ExportJob) error {
	return r.db.GetDB().WithContext(ctx).Create(job).Error
}

func (r *exportJobPgRepository) GetByID(ctx context.Context, id string) (*entities.ExportJob, error) {
	var job entities.ExportJob
	if err := r.db.GetDB().WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *exportJobPgRepository) GetForOwner(ctx context.Context, tenantID, userID, id string) (*entities.ExportJob, error) {
	var job entities.ExportJob
	err := r.db.GetDB().WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND user_id = ?", id, tenantID, userID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *exportJobPgRepository) ListForOwner(ctx context.Context, tenantID, userID string, limit, offset int) ([]entities.ExportJob, int64, error) {
	owned := r.db.GetDB().WithContext(ctx).Model(&entities.ExportJob{}).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Session(&gorm.Session{})

	var total int64
	if err := owned.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var jobs []entities.ExportJob
	err := owned.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error
	return jobs, total, err
}

// Transitions only apply from the expected prior status, so a job never moves
// backwards and a second worker picking up the same job changes nothing.

func (r *exportJobPgRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	res := r.db.GetDB().WithContext(ctx).Model(&entities.ExportJob{}).
		Where("id = ? AND status = ?", id, entities.ExportPending).
		Update("status", entities.ExportProcessing)
	return res.RowsAffected == 1, res.Error
}

func (r *exportJobPgRepository) MarkCompleted(ctx context.Context, id string, result ExportResult) error {
	completedAt := result.CompletedAt.UTC()
	expiresAt := result.ExpiresAt.UTC()
	return r.db.GetDB().WithContext(ctx).Model(&entities.ExportJob{}).
		Where("id = ? AND status = ?", id, entities.ExportProcessing).
		Updates(map[string]interface{}{
			"status":       entities.ExportCompleted,
			"file_path":    result.FilePath,
			"file_size":    result.FileSize,
			"record_count": result.RecordCount,
			"completed_at": completedAt,
			"expires_at":   expiresAt,
		}).Error
}

func (r *exportJobPgRepository) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	return r.db.GetDB().WithContext(ctx).Model(&entities.ExportJob{}).
		Where("id = ? AND status = ?", id, entities.ExportProcessing).
		Updates(map[string]interface{}{
			"status":        entities.ExportFailed,
			"error_message": message,
			"completed_at":  at.UTC(),
		}).Error
}

func (r *exportJobPgRepository) ListExpiredArtifacts(ctx context.Context, now time.Time, limit int) ([]entities.ExportJob, error) {
	var jobs []entities.ExportJob
	err := r.db.GetDB().WithContext(ctx).
		Where("status = ? AND file_path <> '' AND expires_at <= ?", entities.ExportCompleted, now.UTC()).
		Order("expires_at ASC").Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *exportJobPgRepository) ClearArtifact(ctx context.Context, id string) error {
	return r.db.GetDB().WithContext(ctx).Model(&entities.ExportJob{}).
		Where("id = ?", id).
		Update("file_path", "").Error
}
