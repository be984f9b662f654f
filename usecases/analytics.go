package usecases

import (
	"context"
	"fmt"
	"math"
	"time"

	"iot-monitor/entities"
	"iot-monitor/repositories"
)

// AnalyticsUseCase derives duration metrics from stored sessions on every call.
type AnalyticsUseCase struct {
	sessions repositories.SessionRepository
	registry DeviceRegistry
	loc      *time.Location
}

func NewAnalyticsUseCase(sessions repositories.SessionRepository, registry DeviceRegistry, loc *time.Location) *AnalyticsUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsUseCase{sessions: sessions, registry: registry, loc: loc}
}

func (uc *AnalyticsUseCase) Location() *time.Location { return uc.loc }

func (uc *AnalyticsUseCase) DailyDuration(ctx context.Context, tenantID, deviceID string, from, to time.Time) ([]entities.DurationMetric, error) {
	return uc.bucketed(ctx, tenantID, deviceID, from, to, dailyGrouping)
}

func (uc *AnalyticsUseCase) WeeklyDuration(ctx context.Context, tenantID, deviceID string, from, to time.Time) ([]entities.DurationMetric, error) {
	return uc.bucketed(ctx, tenantID, deviceID, from, to, weeklyGrouping)
}

func (uc *AnalyticsUseCase) MonthlyDuration(ctx context.Context, tenantID, deviceID string, from, to time.Time) ([]entities.DurationMetric, error) {
	return uc.bucketed(ctx, tenantID, deviceID, from, to, monthlyGrouping)
}

// bucketed folds the ordered session stream into consecutive buckets. Only
// buckets with at least one session are returned.
func (uc *AnalyticsUseCase) bucketed(ctx context.Context, tenantID, deviceID string, from, to time.Time, g grouping) ([]entities.DurationMetric, error) {
	buckets := []entities.DurationMetric{}
	err := uc.sessions.StreamInRange(ctx, tenantID, deviceID, from, to, func(s *entities.Session) error {
		local := s.StartTime.In(uc.loc)
		label := g.label(local)

		if n := len(buckets); n == 0 || buckets[n-1].Period != label {
			start, end := local, local
			if g.span != nil {
				start, end = g.span(local)
			}
			buckets = append(buckets, entities.DurationMetric{Period: label, StartDate: start, EndDate: end})
		}
		b := &buckets[len(buckets)-1]
		b.TotalDurationMs += s.DurationMs
		b.SessionCount++
		if g.span == nil {
			b.EndDate = local
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate sessions: %w", err)
	}
	for i := range buckets {
		buckets[i].AvgSessionDurationMs = average(buckets[i].TotalDurationMs, buckets[i].SessionCount)
	}
	return buckets, nil
}

// Summary aggregates the whole range for a registered device.
func (uc *AnalyticsUseCase) Summary(ctx context.Context, tenantID, deviceID string, from, to time.Time) (*entities.DeviceSummary, error) {
	device, err := uc.registry.ResolveDevice(ctx, tenantID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve device %s: %w", deviceID, err)
	}
	if device == nil {
		return nil, notFoundf("Device %s not found", deviceID)
	}
	factoryName, err := uc.registry.GetFactoryName(ctx, device.FactoryID)
	if err != nil {
		return nil, fmt.Errorf("resolve factory %s: %w", device.FactoryID, err)
	}
	if factoryName == "" {
		factoryName = unknownFactory
	}

	agg, err := uc.sessions.Aggregate(ctx, tenantID, deviceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate sessions: %w", err)
	}
	return &entities.DeviceSummary{
		DeviceID:    deviceID,
		DeviceName:  device.Name,
		FactoryName: factoryName,
		Period:      entities.DateRange{From: from, To: to},
		Metrics: entities.SummaryMetrics{
			TotalDurationMs:      agg.TotalDurationMs,
			SessionCount:         agg.SessionCount,
			AvgSessionDurationMs: average(agg.TotalDurationMs, agg.SessionCount),
			MinSessionDurationMs: agg.MinDurationMs,
			MaxSessionDurationMs: agg.MaxDurationMs,
		},
	}, nil
}

// PeriodMetrics aggregates the day, week or month containing ref.
func (uc *AnalyticsUseCase) PeriodMetrics(ctx context.Context, tenantID, deviceID string, p Period, ref time.Time) (*entities.DurationMetric, error) {
	start, end := PeriodRange(p, ref, uc.loc)
	agg, err := uc.sessions.Aggregate(ctx, tenantID, deviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("aggregate sessions: %w", err)
	}
	return &entities.DurationMetric{
		Period:               string(p),
		StartDate:            start,
		EndDate:              end,
		TotalDurationMs:      agg.TotalDurationMs,
		SessionCount:         agg.SessionCount,
		AvgSessionDurationMs: average(agg.TotalDurationMs, agg.SessionCount),
	}, nil
}

func average(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return int64(math.Round(float64(total) / float64(count)))
}
