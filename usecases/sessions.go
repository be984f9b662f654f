package usecases

import (
	"context"
	"fmt"
	"time"

	"iot-monitor/entities"
	"iot-monitor/repositories"
)

const (
	defaultSessionPageSize = 100
	maxSessionPageSize     = 1000
)

type SessionPage struct {
	Sessions []entities.Session
	Page     int
	Limit    int
	Total    int64
}

func (p SessionPage) TotalPages() int64 {
	if p.Limit == 0 {
		return 0
	}
	return (p.Total + int64(p.Limit) - 1) / int64(p.Limit)
}

// SessionQueryUseCase serves read-only session listings.
type SessionQueryUseCase struct {
	sessions repositories.SessionRepository
}

func NewSessionQueryUseCase(sessions repositories.SessionRepository) *SessionQueryUseCase {
	return &SessionQueryUseCase{sessions: sessions}
}

func (uc *SessionQueryUseCase) ListSessions(ctx context.Context, tenantID, deviceID string, from, to *time.Time, page, limit int) (*SessionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultSessionPageSize
	}
	if limit > maxSessionPageSize {
		limit = maxSessionPageSize
	}
	sessions, total, err := uc.sessions.ListByDevice(ctx, repositories.SessionFilter{
		TenantID: tenantID,
		DeviceID: deviceID,
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return &SessionPage{Sessions: sessions, Page: page, Limit: limit, Total: total}, nil
}
