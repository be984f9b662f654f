package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"iot-monitor/db"
	"iot-monitor/entities"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type sessionPgRepository struct {
	db db.Database
}

func NewSessionPgRepository(database db.Database) SessionRepository {
	return &sessionPgRepository{db: database}
}

func (r *sessionPgRepository) Create(ctx context.Context, session *entities.Session) error {
	session.StartTime = session.StartTime.UTC()
	session.StopTime = session.StopTime.UTC()
	err := r.db.GetDB().WithContext(ctx).Create(session).Error
	if isUniqueViolation(err) {
		return ErrDuplicateSession
	}
	return err
}

func (r *sessionPgRepository) GetByKey(ctx context.Context, deviceID string, start, stop time.Time) (*entities.Session, error) {
	var session entities.Session
	err := r.db.GetDB().WithContext(ctx).
		Where("device_id = ? AND start_time = ? AND stop_time = ?", deviceID, start.UTC(), stop.UTC()).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionPgRepository) rangeQuery(ctx context.Context, tenantID, deviceID string, from, to time.Time) *gorm.DB {
	return r.db.GetDB().WithContext(ctx).Model(&entities.Session{}).
		Where("tenant_id = ? AND device_id = ? AND start_time >= ? AND start_time <= ?",
			tenantID, deviceID, from.UTC(), to.UTC())
}

func (r *sessionPgRepository) CountInRange(ctx context.Context, tenantID, deviceID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.rangeQuery(ctx, tenantID, deviceID, from, to).Count(&count).Error
	return count, err
}

func (r *sessionPgRepository) Aggregate(ctx context.Context, tenantID, deviceID string, from, to time.Time) (SessionAggregate, error) {
	var row struct {
		SessionCount    int64
		TotalDurationMs int64
		MinDurationMs   int64
		MaxDurationMs   int64
	}
	err := r.rangeQuery(ctx, tenantID, deviceID, from, to).
		Select("COUNT(*) AS session_count, " +
			"COALESCE(SUM(duration_ms), 0) AS total_duration_ms, " +
			"COALESCE(MIN(duration_ms), 0) AS min_duration_ms, " +
			"COALESCE(MAX(duration_ms), 0) AS max_duration_ms").
		Scan(&row).Error
	if err != nil {
		return SessionAggregate{}, err
	}
	return SessionAggregate(row), nil
}

func (r *sessionPgRepository) StreamInRange(ctx context.Context, tenantID, deviceID string, from, to time.Time, fn func(*entities.Session) error) error {
	tx := r.rangeQuery(ctx, tenantID, deviceID, from, to).Order("start_time ASC")
	rows, err := tx.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var session entities.Session
		if err := tx.ScanRows(rows, &session); err != nil {
			return err
		}
		if err := fn(&session); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *sessionPgRepository) ListByDevice(ctx context.Context, filter SessionFilter) ([]entities.Session, int64, error) {
	query := func() *gorm.DB {
		q := r.db.GetDB().WithContext(ctx).Model(&entities.Session{}).
			Where("tenant_id = ? AND device_id = ?", filter.TenantID, filter.DeviceID)
		if filter.From != nil {
			q = q.Where("start_time >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			q = q.Where("start_time <= ?", filter.To.UTC())
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []entities.Session
	err := query().Order("start_time DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&sessions).Error
	return sessions, total, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
