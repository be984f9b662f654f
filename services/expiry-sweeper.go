package services

import (
	"context"
	"time"

	"iot-monitor/repositories"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepBatch = 500

type ArtifactRemover interface {
	Remove(path string) error
}

// ExpirySweeper deletes artifacts of expired export jobs on a cron schedule.
// Job rows and their completed status are kept.
type ExpirySweeper struct {
	jobs     repositories.ExportJobRepository
	store    ArtifactRemover
	logger   *zap.Logger
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

func NewExpirySweeper(jobs repositories.ExportJobRepository, store ArtifactRemover, schedule string, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		jobs:     jobs,
		store:    store,
		logger:   logger,
		schedule: schedule,
		cron:     cron.New(),
		now:      time.Now,
	}
}

func (s *ExpirySweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("export sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule; the returned context is done once a running sweep ends.
func (s *ExpirySweeper) Stop() context.Context {
	return s.cron.Stop()
}

// Sweep makes one pass and returns how many artifacts were removed.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	jobs, err := s.jobs.ListExpiredArtifacts(ctx, s.now(), sweepBatch)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, job := range jobs {
		if err := s.store.Remove(job.FilePath); err != nil {
			s.logger.Warn("expired artifact not removed", zap.String("export_id", job.ID), zap.Error(err))
			continue
		}
		if err := s.jobs.ClearArtifact(ctx, job.ID); err != nil {
			s.logger.Warn("expired artifact not cleared", zap.String("export_id", job.ID), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("expired export artifacts removed", zap.Int("count", removed))
	}
	return removed, nil
}
