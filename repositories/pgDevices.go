package repositories

import (
	"context"
	"errors"

	"iot-monitor/db"
	"iot-monitor/entities"

	"gorm.io/gorm"
)

type devicePgRepository struct {
	db db.Database
}

func NewDevicePgRepository(database db.Database) DeviceRepository {
	return &devicePgRepository{db: database}
}

func (r *devicePgRepository) CreateFactory(ctx context.Context, factory *entities.Factory) error {
	return r.db.GetDB().WithContext(ctx).Create(factory).Error
}

func (r *devicePgRepository) Create(ctx context.Context, device *entities.Device) error {
	return r.db.GetDB().WithContext(ctx).Create(device).Error
}

func (r *devicePgRepository) ResolveDevice(ctx context.Context, tenantID, deviceID string) (*entities.Device, error) {
	var device entities.Device
	err := r.db.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND device_id = ?", tenantID, deviceID).
		First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *devicePgRepository) GetFactoryName(ctx context.Context, factoryID string) (string, error) {
	var factory entities.Factory
	err := r.db.GetDB().WithContext(ctx).Select("name").Where("id = ?", factoryID).First(&factory).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return factory.Name, nil
}
