package usecases

import (
	"context"

	"iot-monitor/entities"
)

// DeviceRegistry resolves device business ids to registered devices.
type DeviceRegistry interface {
	ResolveDevice(ctx context.Context, tenantID, deviceID string) (*entities.Device, error)
	GetFactoryName(ctx context.Context, factoryID string) (string, error)
}

const unknownFactory = "Unknown"
