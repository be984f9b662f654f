package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"iot-monitor/handlers/middleware"
	"iot-monitor/usecases"
	"iot-monitor/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket message envelopes
type incomingMessage struct {
	Type string `json:"type"` // session | heartbeat
}

type sessionPayload struct {
	Type      string `json:"type"`
	StartTime string `json:"start_time"`
	StopTime  string `json:"stop_time"`
	Duration  *int64 `json:"duration"`
}

type sessionAck struct {
	Type string `json:"type"`
	*usecases.IngestResult
	Message string `json:"message"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// WSHandler groups dependencies for websocket flows
type WSHandler struct {
	devices   *ws.Manager
	users     *ws.Manager
	ingestion *usecases.IngestionUseCase
	logger    *zap.Logger
}

func NewWSHandler(devices, users *ws.Manager, ingestion *usecases.IngestionUseCase, logger *zap.Logger) *WSHandler {
	return &WSHandler{devices: devices, users: users, ingestion: ingestion, logger: logger}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// HandleDeviceWS upgrades to websocket and reads sessions from a device
// GET /ws/devices?id=<device_id>
func (h *WSHandler) HandleDeviceWS(c *gin.Context) {
	deviceID := c.Query("id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing device id"})
		return
	}
	p := middleware.PrincipalFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	key := ws.DeviceKey(p.TenantID, deviceID)
	client := h.devices.RegisterExclusive(key, conn)
	log := h.logger.With(zap.String("tenant_id", p.TenantID), zap.String("device_id", deviceID))
	log.Info("device connected")

	defer func() {
		h.devices.Unregister(key, client)
		log.Info("device disconnected")
	}()

	ctx := c.Request.Context()
	h.ingestion.Heartbeat(ctx, p.TenantID, deviceID)

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("device closed connection")
			} else {
				log.Debug("read error", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var base incomingMessage
		if err := json.Unmarshal(message, &base); err != nil {
			_ = client.SendJSON(errorMessage{Type: "error", Error: "invalid json"})
			continue
		}

		switch base.Type {
		case "session":
			var payload sessionPayload
			if err := json.Unmarshal(message, &payload); err != nil || payload.Duration == nil ||
				payload.StartTime == "" || payload.StopTime == "" {
				_ = client.SendJSON(errorMessage{Type: "error", Error: "start_time, stop_time and duration are required"})
				continue
			}
			res, err := h.ingestion.Ingest(ctx, p.TenantID, usecases.IngestRequest{
				DeviceID:        deviceID,
				StartTime:       payload.StartTime,
				StopTime:        payload.StopTime,
				ClaimedDuration: *payload.Duration,
			})
			if err != nil {
				msg := publicError(err)
				if msg == internalError {
					log.Error("websocket ingest failed", zap.Error(err))
				}
				_ = client.SendJSON(errorMessage{Type: "error", Error: msg})
				continue
			}
			_ = client.SendJSON(sessionAck{Type: "session_ack", IngestResult: res, Message: res.Message()})
		case "heartbeat":
			h.ingestion.Heartbeat(ctx, p.TenantID, deviceID)
		default:
			log.Debug("unknown message type", zap.String("type", base.Type))
		}
	}
}

// HandleExportsWS streams export status changes for the calling user
// GET /ws/exports
func (h *WSHandler) HandleExportsWS(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	key := ws.UserKey(p.TenantID, p.UserID)
	client := h.users.Register(key, conn)
	defer h.users.Unregister(key, client)

	// drain until the peer goes away; this socket is push only
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// GetConnectedDevices GET /api/v1/devices/connected
func (h *WSHandler) GetConnectedDevices(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	prefix := ws.DeviceKey(p.TenantID, "")
	devices := []string{}
	for _, key := range h.devices.List() {
		if strings.HasPrefix(key, prefix) {
			devices = append(devices, strings.TrimPrefix(key, prefix))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"devices": devices, "count": len(devices)}})
}
