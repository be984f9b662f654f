package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"iot-monitor/audit"
	"iot-monitor/entities"
	"iot-monitor/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MsgExportCreated = "Export job created. Check status for download link."
	MsgExportMissing = "Export file not found or expired"

	defaultExportPageSize = 20
	maxExportPageSize     = 100
)

// Dispatcher starts background generation of a job without waiting for it.
type Dispatcher interface {
	Dispatch(jobID string)
}

// ArtifactChecker reports whether a stored artifact is still on disk.
type ArtifactChecker interface {
	Exists(path string) bool
}

type ExportRequest struct {
	TenantID string
	UserID   string
	DeviceID string
	Format   entities.ExportFormat
	DateFrom time.Time
	DateTo   time.Time
}

type ExportUseCase struct {
	sessions   repositories.SessionRepository
	jobs       repositories.ExportJobRepository
	registry   DeviceRegistry
	dispatcher Dispatcher
	artifacts  ArtifactChecker
	audit      audit.Recorder
	maxRecords int64
	logger     *zap.Logger
	now        func() time.Time
}

func NewExportUseCase(
	sessions repositories.SessionRepository,
	jobs repositories.ExportJobRepository,
	registry DeviceRegistry,
	dispatcher Dispatcher,
	artifacts ArtifactChecker,
	recorder audit.Recorder,
	maxRecords int64,
	logger *zap.Logger,
) *ExportUseCase {
	return &ExportUseCase{
		sessions:   sessions,
		jobs:       jobs,
		registry:   registry,
		dispatcher: dispatcher,
		artifacts:  artifacts,
		audit:      recorder,
		maxRecords: maxRecords,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateExportJob records a pending job and hands it to the dispatcher. The
// returned job is still pending; progress is visible by polling.
func (uc *ExportUseCase) CreateExportJob(ctx context.Context, req ExportRequest) (*entities.ExportJob, error) {
	if !req.Format.Valid() {
		return nil, validationErrorf("Invalid format. Use: csv, xlsx, or json")
	}
	if req.DateFrom.After(req.DateTo) {
		return nil, validationErrorf("date_from must not be after date_to")
	}

	device, err := uc.registry.ResolveDevice(ctx, req.TenantID, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve device %s: %w", req.DeviceID, err)
	}
	if device == nil {
		return nil, notFoundf("Device %s not found", req.DeviceID)
	}

	count, err := uc.sessions.CountInRange(ctx, req.TenantID, req.DeviceID, req.DateFrom, req.DateTo)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if count > uc.maxRecords {
		return nil, &LimitExceededError{Limit: uc.maxRecords, Count: count}
	}

	job := &entities.ExportJob{
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		DeviceID:  req.DeviceID,
		Format:    req.Format,
		DateFrom:  req.DateFrom.UTC(),
		DateTo:    req.DateTo.UTC(),
		Status:    entities.ExportPending,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}

	uc.audit.Record(ctx, audit.Event{
		TenantID:     req.TenantID,
		ActorID:      req.UserID,
		ActorType:    entities.ActorUser,
		Action:       "export.create",
		ResourceType: "export_job",
		ResourceID:   job.ID,
		Details: map[string]interface{}{
			"device_id":      req.DeviceID,
			"format":         req.Format,
			"expected_count": count,
		},
	})
	uc.logger.Info("export job created",
		zap.String("export_id", job.ID),
		zap.String("device_id", req.DeviceID),
		zap.String("format", string(req.Format)),
		zap.Int64("expected_records", count))

	uc.dispatcher.Dispatch(job.ID)
	return job, nil
}

func (uc *ExportUseCase) GetExportJob(ctx context.Context, tenantID, userID, jobID string) (*entities.ExportJob, error) {
	job, err := uc.jobs.GetForOwner(ctx, tenantID, userID, jobID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Export job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load export job: %w", err)
	}
	return job, nil
}

// GetDownloadPath returns the artifact path of a completed, unexpired job.
func (uc *ExportUseCase) GetDownloadPath(ctx context.Context, tenantID, userID, jobID string) (string, error) {
	job, err := uc.GetExportJob(ctx, tenantID, userID, jobID)
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return "", notFoundf(MsgExportMissing)
	}
	if err != nil {
		return "", err
	}
	if !job.Downloadable(uc.now()) || !uc.artifacts.Exists(job.FilePath) {
		return "", notFoundf(MsgExportMissing)
	}
	return job.FilePath, nil
}

// ListExportJobs pages through the caller's jobs, newest first.
func (uc *ExportUseCase) ListExportJobs(ctx context.Context, tenantID, userID string, page, limit int) ([]entities.ExportJob, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultExportPageSize
	}
	if limit > maxExportPageSize {
		limit = maxExportPageSize
	}
	jobs, total, err := uc.jobs.ListForOwner(ctx, tenantID, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, total, nil
}
