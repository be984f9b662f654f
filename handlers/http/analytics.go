package httpHandler

import (
	"context"
	"net/http"
	"time"

	"iot-monitor/entities"
	"iot-monitor/handlers/middleware"
	"iot-monitor/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	useCase *usecases.AnalyticsUseCase
	logger  *zap.Logger
	now     func() time.Time
}

func NewAnalyticsHandler(useCase *usecases.AnalyticsUseCase, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{useCase: useCase, logger: logger, now: time.Now}
}

type bucketResponse struct {
	DeviceID   string                    `json:"device_id"`
	PeriodType string                    `json:"period_type"`
	DateRange  entities.DateRange        `json:"date_range"`
	Metrics    []entities.DurationMetric `json:"metrics"`
}

type bucketFunc func(ctx context.Context, tenantID, deviceID string, from, to time.Time) ([]entities.DurationMetric, error)

func (h *AnalyticsHandler) buckets(periodType string, fn bucketFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, err := dateRange(c, h.now())
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		p := middleware.PrincipalFrom(c)
		deviceID := c.Param("deviceId")
		metrics, err := fn(c.Request.Context(), p.TenantID, deviceID, from, to)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		respondOK(c, http.StatusOK, bucketResponse{
			DeviceID:   deviceID,
			PeriodType: periodType,
			DateRange:  entities.DateRange{From: from, To: to},
			Metrics:    metrics,
		}, "")
	}
}

// Daily handles GET /api/v1/devices/:deviceId/analytics/daily
func (h *AnalyticsHandler) Daily() gin.HandlerFunc { return h.buckets("daily", h.useCase.DailyDuration) }

// Weekly handles GET /api/v1/devices/:deviceId/analytics/weekly
func (h *AnalyticsHandler) Weekly() gin.HandlerFunc { return h.buckets("weekly", h.useCase.WeeklyDuration) }

// Monthly handles GET /api/v1/devices/:deviceId/analytics/monthly
func (h *AnalyticsHandler) Monthly() gin.HandlerFunc { return h.buckets("monthly", h.useCase.MonthlyDuration) }

// Summary handles GET /api/v1/devices/:deviceId/analytics/summary
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	from, to, err := dateRange(c, h.now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	p := middleware.PrincipalFrom(c)
	summary, err := h.useCase.Summary(c.Request.Context(), p.TenantID, c.Param("deviceId"), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, summary, "")
}

// Period handles GET /api/v1/devices/:deviceId/analytics/period
func (h *AnalyticsHandler) Period(c *gin.Context) {
	period, err := usecases.ParsePeriod(c.DefaultQuery("period", string(usecases.PeriodDay)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ref := h.now()
	if t, err := queryTime(c, "reference_date"); err != nil {
		respondError(c, h.logger, err)
		return
	} else if t != nil {
		ref = *t
	}

	p := middleware.PrincipalFrom(c)
	metric, err := h.useCase.PeriodMetrics(c.Request.Context(), p.TenantID, c.Param("deviceId"), period, ref)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, metric, "")
}
