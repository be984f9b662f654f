package entities

import "time"

// DurationMetric is a derived aggregate over the sessions of one bucket.
type DurationMetric struct {
	Period               string    `json:"period"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	TotalDurationMs      int64     `json:"total_duration_ms"`
	SessionCount         int64     `json:"session_count"`
	AvgSessionDurationMs int64     `json:"avg_session_duration_ms"`
}

// DateRange is an inclusive instant range.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type DeviceSummary struct {
	DeviceID    string         `json:"device_id"`
	DeviceName  string         `json:"device_name"`
	FactoryName string         `json:"factory_name"`
	Period      DateRange      `json:"period"`
	Metrics     SummaryMetrics `json:"metrics"`
}

type SummaryMetrics struct {
	TotalDurationMs      int64 `json:"total_duration_ms"`
	SessionCount         int64 `json:"session_count"`
	AvgSessionDurationMs int64 `json:"avg_session_duration_ms"`
	MinSessionDurationMs int64 `json:"min_session_duration_ms"`
	MaxSessionDurationMs int64 `json:"max_session_duration_ms"`
}

// AllModels lists every persisted entity, in dependency order.
func AllModels() []interface{} {
	return []interface{}{&Factory{}, &Device{}, &Session{}, &ExportJob{}, &AuditLog{}}
}
