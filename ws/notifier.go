package ws

import (
	"encoding/json"
	"errors"

	"iot-monitor/entities"

	"go.uber.org/zap"
)

// UserKey is the hub key of a dashboard user's sockets.
func UserKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

// DeviceKey is the hub key of a device socket.
func DeviceKey(tenantID, deviceID string) string {
	return tenantID + "/" + deviceID
}

type ExportStatusMessage struct {
	Type         string                `json:"type"`
	ExportID     string                `json:"export_id"`
	DeviceID     string                `json:"device_id"`
	Status       entities.ExportStatus `json:"status"`
	RecordCount  int64                 `json:"record_count"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

// ExportNotifier pushes terminal export states to the owner's open sockets.
// Users without a socket simply poll.
type ExportNotifier struct {
	mgr    *Manager
	logger *zap.Logger
}

func NewExportNotifier(mgr *Manager, logger *zap.Logger) *ExportNotifier {
	return &ExportNotifier{mgr: mgr, logger: logger}
}

func (n *ExportNotifier) ExportFinished(job *entities.ExportJob) {
	payload, err := json.Marshal(ExportStatusMessage{
		Type:         "export_status",
		ExportID:     job.ID,
		DeviceID:     job.DeviceID,
		Status:       job.Status,
		RecordCount:  job.RecordCount,
		ErrorMessage: job.ErrorMessage,
	})
	if err != nil {
		return
	}
	err = n.mgr.Send(UserKey(job.TenantID, job.UserID), payload)
	if err != nil && !errors.Is(err, ErrNotConnected) {
		n.logger.Warn("export status push failed", zap.String("export_id", job.ID), zap.Error(err))
	}
}
