package httpHandler

import (
	"net/http"
	"time"

	"iot-monitor/handlers/middleware"
	"iot-monitor/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ingestSessionRequest struct {
	DeviceID  string `json:"device_id" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	StopTime  string `json:"stop_time" binding:"required"`
	Duration  *int64 `json:"duration" binding:"required"`
}

type SessionHandler struct {
	ingestion *usecases.IngestionUseCase
	query     *usecases.SessionQueryUseCase
	logger    *zap.Logger
}

func NewSessionHandler(ingestion *usecases.IngestionUseCase, query *usecases.SessionQueryUseCase, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{ingestion: ingestion, query: query, logger: logger}
}

// IngestSession handles POST /api/v1/device/session
func (h *SessionHandler) IngestSession(c *gin.Context) {
	var req ingestSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	p := middleware.PrincipalFrom(c)
	res, err := h.ingestion.Ingest(c.Request.Context(), p.TenantID, usecases.IngestRequest{
		DeviceID:        req.DeviceID,
		StartTime:       req.StartTime,
		StopTime:        req.StopTime,
		ClaimedDuration: *req.Duration,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, res, res.Message())
}

// ListSessions handles GET /api/v1/devices/:deviceId/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	from, err := queryTime(c, "date_from")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	to, err := queryTime(c, "date_to")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	p := middleware.PrincipalFrom(c)
	page, err := h.query.ListSessions(c.Request.Context(), p.TenantID, c.Param("deviceId"),
		from, to, queryInt(c, "page", 1), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Sessions,
		"pagination": gin.H{
			"page":       page.Page,
			"limit":      page.Limit,
			"total":      page.Total,
			"totalPages": page.TotalPages(),
		},
	})
}

// GetPresence handles GET /api/v1/devices/:deviceId/presence
func (h *SessionHandler) GetPresence(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	deviceID := c.Param("deviceId")

	presence, err := h.ingestion.Presence(c.Request.Context(), p.TenantID, deviceID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	data := gin.H{"device_id": deviceID, "online": presence != nil}
	if presence != nil {
		data["last_seen"] = presence.LastSeen.UTC().Format(time.RFC3339Nano)
		if !presence.LastStopTime.IsZero() {
			data["last_stop_time"] = presence.LastStopTime.UTC().Format(time.RFC3339Nano)
		}
	}
	respondOK(c, http.StatusOK, data, "")
}
