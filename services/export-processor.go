package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"iot-monitor/audit"
	"iot-monitor/entities"
	"iot-monitor/exporter"
	"iot-monitor/metrics"
	"iot-monitor/repositories"
	"iot-monitor/storage"
	"iot-monitor/usecases"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Notifier is told about jobs that reached a terminal state.
type Notifier interface {
	ExportFinished(job *entities.ExportJob)
}

// ExportProcessor generates export artifacts in the background. At most
// `workers` jobs generate at once; the rest stay pending until a slot frees.
type ExportProcessor struct {
	jobs     repositories.ExportJobRepository
	sessions repositories.SessionRepository
	registry usecases.DeviceRegistry
	store    *storage.ArtifactStore
	audit    audit.Recorder
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	ttl      time.Duration
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	now      func() time.Time
}

type ExportProcessorConfig struct {
	Workers int
	TTL     time.Duration
}

func NewExportProcessor(
	jobs repositories.ExportJobRepository,
	sessions repositories.SessionRepository,
	registry usecases.DeviceRegistry,
	store *storage.ArtifactStore,
	recorder audit.Recorder,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg ExportProcessorConfig,
) *ExportProcessor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &ExportProcessor{
		jobs:     jobs,
		sessions: sessions,
		registry: registry,
		store:    store,
		audit:    recorder,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		ttl:      cfg.TTL,
		sem:      semaphore.NewWeighted(int64(cfg.Workers)),
		now:      time.Now,
	}
}

// Dispatch starts generation in a detached goroutine and returns immediately.
func (p *ExportProcessor) Dispatch(jobID string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx := context.Background()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		_ = p.Process(ctx, jobID)
	}()
}

// Wait blocks until dispatched jobs finish or ctx is done.
func (p *ExportProcessor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process runs one generation attempt. A job that is no longer pending is
// left untouched.
func (p *ExportProcessor) Process(ctx context.Context, jobID string) (err error) {
	claimed, err := p.jobs.MarkProcessing(ctx, jobID)
	if err != nil {
		p.logger.Error("export claim failed", zap.String("export_id", jobID), zap.Error(err))
		return err
	}
	if !claimed {
		p.logger.Debug("export job not pending, skipping", zap.String("export_id", jobID))
		return nil
	}
	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		p.logger.Error("export job vanished after claim", zap.String("export_id", jobID), zap.Error(err))
		return err
	}

	started := p.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export generation panicked: %v", r)
			p.fail(ctx, job, err, started)
		}
	}()

	result, err := p.generate(ctx, job)
	if err == nil {
		err = p.jobs.MarkCompleted(ctx, job.ID, result)
		if err != nil {
			_ = p.store.Remove(result.FilePath)
			err = fmt.Errorf("record completion: %w", err)
		}
	}
	if err != nil {
		p.fail(ctx, job, err, started)
		return err
	}

	job.Status = entities.ExportCompleted
	job.FilePath = result.FilePath
	job.FileSize = result.FileSize
	job.RecordCount = result.RecordCount
	job.CompletedAt = &result.CompletedAt
	job.ExpiresAt = &result.ExpiresAt

	p.metrics.ExportFinished(string(entities.ExportCompleted), result.RecordCount, p.now().Sub(started))
	p.audit.Record(ctx, audit.Event{
		TenantID:     job.TenantID,
		ActorID:      job.UserID,
		ActorType:    entities.ActorUser,
		Action:       "export.complete",
		ResourceType: "export_job",
		ResourceID:   job.ID,
		Details: map[string]interface{}{
			"device_id":    job.DeviceID,
			"format":       job.Format,
			"record_count": result.RecordCount,
		},
	})
	p.logger.Info("export job completed",
		zap.String("export_id", job.ID),
		zap.Int64("records", result.RecordCount),
		zap.Int64("bytes", result.FileSize))
	p.notify(job)
	return nil
}

// generate streams the job's sessions into a fresh artifact. On error the
// partial artifact is removed.
func (p *ExportProcessor) generate(ctx context.Context, job *entities.ExportJob) (repositories.ExportResult, error) {
	deviceName, factoryName, err := p.describeDevice(ctx, job)
	if err != nil {
		return repositories.ExportResult{}, err
	}

	f, path, err := p.store.Create(storage.ArtifactName(job.DeviceID, string(job.Format)))
	if err != nil {
		return repositories.ExportResult{}, fmt.Errorf("create artifact: %w", err)
	}
	cleanup := func(cause error) (repositories.ExportResult, error) {
		_ = f.Close()
		if rmErr := p.store.Remove(path); rmErr != nil {
			p.logger.Warn("partial export artifact not removed", zap.String("path", path), zap.Error(rmErr))
		}
		return repositories.ExportResult{}, cause
	}

	w, err := exporter.NewWriter(job.Format, f)
	if err != nil {
		return cleanup(err)
	}

	var count int64
	err = p.sessions.StreamInRange(ctx, job.TenantID, job.DeviceID, job.DateFrom, job.DateTo, func(s *entities.Session) error {
		count++
		return w.WriteRow(exporter.NewRow(s, deviceName, factoryName))
	})
	if err != nil {
		return cleanup(fmt.Errorf("stream sessions: %w", err))
	}
	if err := w.Close(); err != nil {
		return cleanup(fmt.Errorf("finish %s document: %w", job.Format, err))
	}
	if err := f.Close(); err != nil {
		return cleanup(fmt.Errorf("close artifact: %w", err))
	}

	size, err := p.store.Size(path)
	if err != nil {
		return cleanup(fmt.Errorf("stat artifact: %w", err))
	}
	completedAt := p.now().UTC()
	return repositories.ExportResult{
		FilePath:    path,
		FileSize:    size,
		RecordCount: count,
		CompletedAt: completedAt,
		ExpiresAt:   completedAt.Add(p.ttl),
	}, nil
}

func (p *ExportProcessor) describeDevice(ctx context.Context, job *entities.ExportJob) (string, string, error) {
	device, err := p.registry.ResolveDevice(ctx, job.TenantID, job.DeviceID)
	if err != nil {
		return "", "", fmt.Errorf("resolve device: %w", err)
	}
	if device == nil {
		return "", "", errors.New("device no longer registered")
	}
	deviceName := device.Name
	if deviceName == "" {
		deviceName = job.DeviceID
	}
	factoryName, err := p.registry.GetFactoryName(ctx, device.FactoryID)
	if err != nil {
		return "", "", fmt.Errorf("resolve factory: %w", err)
	}
	if factoryName == "" {
		factoryName = "Unknown"
	}
	return deviceName, factoryName, nil
}

func (p *ExportProcessor) fail(ctx context.Context, job *entities.ExportJob, cause error, started time.Time) {
	at := p.now().UTC()
	if err := p.jobs.MarkFailed(ctx, job.ID, cause.Error(), at); err != nil {
		p.logger.Error("export failure not recorded", zap.String("export_id", job.ID), zap.Error(err))
	}
	job.Status = entities.ExportFailed
	job.ErrorMessage = cause.Error()
	job.CompletedAt = &at

	p.metrics.ExportFinished(string(entities.ExportFailed), 0, at.Sub(started))
	p.logger.Error("export job failed", zap.String("export_id", job.ID), zap.Error(cause))
	p.notify(job)
}

func (p *ExportProcessor) notify(job *entities.ExportJob) {
	if p.notifier != nil {
		p.notifier.ExportFinished(job)
	}
}
