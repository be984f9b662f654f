package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type session struct {
	DeviceID  string `json:"device_id"`
	StartTime string `json:"start_time"`
	StopTime  string `json:"stop_time"`
	Duration  int64  `json:"duration"`
}

func newSession(deviceID string, start, stop time.Time) session {
	start = start.UTC().Truncate(time.Millisecond)
	stop = stop.UTC().Truncate(time.Millisecond)
	return session{
		DeviceID:  deviceID,
		StartTime: start.Format(isoMillis),
		StopTime:  stop.Format(isoMillis),
		Duration:  stop.Sub(start).Milliseconds(),
	}
}

type ingestResult struct {
	SessionID          string `json:"session_id"`
	IsDuplicate        bool   `json:"is_duplicate"`
	ComputedDurationMs int64  `json:"computed_duration_ms"`
}

type envelope struct {
	Success bool          `json:"success"`
	Data    *ingestResult `json:"data"`
	Message string        `json:"message"`
	Error   string        `json:"error"`
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// postSession submits one finished session and returns the server's verdict.
func (c *apiClient) postSession(ctx context.Context, s session) (*ingestResult, string, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/device/session", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, "", err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != http.StatusOK || !env.Success || env.Data == nil {
		if env.Error == "" {
			env.Error = http.StatusText(resp.StatusCode)
		}
		return nil, "", fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Error)
	}
	return env.Data, env.Message, nil
}
