package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"iot-monitor/audit"
	"iot-monitor/cache"
	"iot-monitor/handlers/middleware"
	"iot-monitor/repositories"
	"iot-monitor/testutil"
	"iot-monitor/usecases"
	"iot-monitor/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newWSServer(t *testing.T) (*httptest.Server, *middleware.Authenticator, *ws.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	database := testutil.NewDB(t)
	testutil.SeedDevice(t, database, "tenant-a", "DEV-1", true)
	devices := repositories.NewDevicePgRepository(database)
	auditLogger := audit.NewLogger(repositories.NewAuditLogPgRepository(database), logger)
	t.Cleanup(auditLogger.Wait)

	ingestion := usecases.NewIngestionUseCase(repositories.NewSessionPgRepository(database), devices,
		auditLogger, cache.NewMemoryPresence(time.Minute), nil, logger)
	deviceSockets := ws.NewManager()
	h := NewWSHandler(deviceSockets, ws.NewManager(), ingestion, logger)

	auth := middleware.NewAuthenticator(testSecret, "")
	r := gin.New()
	r.GET("/ws/devices", auth.Require(), h.HandleDeviceWS)
	r.GET("/api/v1/devices/connected", auth.Require(), h.GetConnectedDevices)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, auth, deviceSockets
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandleDeviceWS_IngestsSessions(t *testing.T) {
	srv, auth, mgr := newWSServer(t)
	token, err := auth.Issue(middleware.Principal{TenantID: "tenant-a", UserID: "DEV-1"}, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/devices?id=DEV-1&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return mgr.IsConnected(ws.DeviceKey("tenant-a", "DEV-1")) }, time.Second, 10*time.Millisecond)

	session := map[string]interface{}{
		"type":       "session",
		"start_time": "2024-03-04T08:00:00.000Z",
		"stop_time":  "2024-03-04T08:05:00.000Z",
		"duration":   300000,
	}
	require.NoError(t, conn.WriteJSON(session))
	ack := readJSON(t, conn)
	assert.Equal(t, "session_ack", ack["type"])
	assert.Equal(t, false, ack["is_duplicate"])
	assert.EqualValues(t, 300000, ack["computed_duration_ms"])
	assert.Equal(t, "Session ingested successfully", ack["message"])

	require.NoError(t, conn.WriteJSON(session))
	dup := readJSON(t, conn)
	assert.Equal(t, true, dup["is_duplicate"])
	assert.Equal(t, ack["session_id"], dup["session_id"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "session", "start_time": "x", "stop_time": "y", "duration": 1}))
	bad := readJSON(t, conn)
	assert.Equal(t, "error", bad["type"])
	assert.Equal(t, "Invalid timestamp format. Use ISO-8601.", bad["error"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "session"}))
	assert.Equal(t, "error", readJSON(t, conn)["type"])

	// connected listing is scoped to the caller's tenant
	for tenant, want := range map[string][]interface{}{"tenant-a": {"DEV-1"}, "tenant-b": {}} {
		userToken, err := auth.Issue(middleware.Principal{TenantID: tenant, UserID: "user-1"}, time.Hour)
		require.NoError(t, err)
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/devices/connected", nil)
		req.Header.Set("Authorization", "Bearer "+userToken)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		var body struct {
			Data struct {
				Devices []interface{} `json:"devices"`
				Count   int           `json:"count"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, want, body.Data.Devices, tenant)
		assert.Equal(t, len(want), body.Data.Count)
	}
}

func TestHandleDeviceWS_RequiresID(t *testing.T) {
	srv, auth, _ := newWSServer(t)
	token, err := auth.Issue(middleware.Principal{TenantID: "tenant-a", UserID: "DEV-1"}, time.Hour)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/ws/devices?token=" + token)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
