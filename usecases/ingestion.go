package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"iot-monitor/audit"
	"iot-monitor/cache"
	"iot-monitor/entities"
	"iot-monitor/metrics"
	"iot-monitor/repositories"

	"go.uber.org/zap"
)

// DurationToleranceMs is how far a device's claimed duration may drift from
// stop-start before the submission is flagged.
const DurationToleranceMs = 1000

const (
	MsgSessionIngested  = "Session ingested successfully"
	MsgSessionDuplicate = "Session already exists (idempotent)"
)

// zone-less timestamps are read as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type IngestRequest struct {
	DeviceID        string
	StartTime       string
	StopTime        string
	ClaimedDuration int64
}

type IngestResult struct {
	SessionID          string `json:"session_id"`
	IsDuplicate        bool   `json:"is_duplicate"`
	ComputedDurationMs int64  `json:"computed_duration_ms"`
}

// Message is the human readable outcome; duplicates are still successes.
func (r *IngestResult) Message() string {
	if r.IsDuplicate {
		return MsgSessionDuplicate
	}
	return MsgSessionIngested
}

type IngestionUseCase struct {
	sessions repositories.SessionRepository
	registry DeviceRegistry
	audit    audit.Recorder
	presence cache.PresenceTracker
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewIngestionUseCase(
	sessions repositories.SessionRepository,
	registry DeviceRegistry,
	recorder audit.Recorder,
	presence cache.PresenceTracker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IngestionUseCase {
	return &IngestionUseCase{
		sessions: sessions,
		registry: registry,
		audit:    recorder,
		presence: presence,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest stores one session at most once. Retries of the same
// (device, start, stop) return the originally stored session.
func (uc *IngestionUseCase) Ingest(ctx context.Context, tenantID string, req IngestRequest) (*IngestResult, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return nil, validationErrorf("device_id is required")
	}
	start, err := ParseTimestamp(req.StartTime)
	if err != nil {
		return nil, err
	}
	stop, err := ParseTimestamp(req.StopTime)
	if err != nil {
		return nil, err
	}
	if !start.Before(stop) {
		return nil, validationErrorf("start_time must be before stop_time")
	}

	computed := stop.Sub(start).Milliseconds()
	if diff := req.ClaimedDuration - computed; diff > DurationToleranceMs || diff < -DurationToleranceMs {
		uc.metrics.DurationMismatch()
		uc.logger.Warn("claimed session duration differs from computed duration",
			zap.String("tenant_id", tenantID),
			zap.String("device_id", deviceID),
			zap.Int64("claimed_ms", req.ClaimedDuration),
			zap.Int64("computed_ms", computed))
	}

	device, err := uc.registry.ResolveDevice(ctx, tenantID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve device %s: %w", deviceID, err)
	}
	if device == nil || !device.IsActive {
		return nil, notFoundf("Device %s not found or inactive", deviceID)
	}

	session := &entities.Session{
		TenantID:   tenantID,
		FactoryID:  device.FactoryID,
		DeviceID:   deviceID,
		StartTime:  start,
		StopTime:   stop,
		DurationMs: computed,
		IngestedAt: uc.now().UTC(),
	}
	err = uc.sessions.Create(ctx, session)
	switch {
	case errors.Is(err, repositories.ErrDuplicateSession):
		existing, err := uc.sessions.GetByKey(ctx, deviceID, start, stop)
		if err != nil {
			return nil, fmt.Errorf("load existing session: %w", err)
		}
		uc.metrics.SessionIngested(true)
		uc.touchPresence(ctx, tenantID, deviceID, stop)
		return &IngestResult{SessionID: existing.ID, IsDuplicate: true, ComputedDurationMs: existing.DurationMs}, nil
	case err != nil:
		return nil, fmt.Errorf("store session: %w", err)
	}

	uc.metrics.SessionIngested(false)
	uc.audit.Record(ctx, audit.Event{
		TenantID:     tenantID,
		ActorID:      device.ID,
		ActorType:    entities.ActorDevice,
		Action:       "session.ingest",
		ResourceType: "device_session",
		ResourceID:   session.ID,
		Details: map[string]interface{}{
			"device_id":   deviceID,
			"start_time":  start.Format(time.RFC3339Nano),
			"stop_time":   stop.Format(time.RFC3339Nano),
			"duration_ms": computed,
		},
	})
	uc.touchPresence(ctx, tenantID, deviceID, stop)

	return &IngestResult{SessionID: session.ID, ComputedDurationMs: computed}, nil
}

// Heartbeat marks the device as seen without storing anything.
func (uc *IngestionUseCase) Heartbeat(ctx context.Context, tenantID, deviceID string) {
	uc.touchPresence(ctx, tenantID, deviceID, time.Time{})
}

// Presence reports when the device was last seen; nil means offline.
func (uc *IngestionUseCase) Presence(ctx context.Context, tenantID, deviceID string) (*cache.Presence, error) {
	if uc.presence == nil {
		return nil, nil
	}
	return uc.presence.Get(ctx, tenantID, deviceID)
}

func (uc *IngestionUseCase) touchPresence(ctx context.Context, tenantID, deviceID string, stop time.Time) {
	if uc.presence == nil {
		return
	}
	p := cache.Presence{LastSeen: uc.now().UTC(), LastStopTime: stop}
	if err := uc.presence.Touch(ctx, tenantID, deviceID, p); err != nil {
		uc.logger.Warn("device presence update failed", zap.String("device_id", deviceID), zap.Error(err))
	}
}

// ParseTimestamp reads an ISO-8601 instant at millisecond precision.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, validationErrorf("Invalid timestamp format. Use ISO-8601.")
}
