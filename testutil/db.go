// Package testutil provides a throwaway SQLite-backed database for repository
// and usecase tests.
package testutil

import (
	"path/filepath"
	"testing"

	"iot-monitor/db"
	"iot-monitor/entities"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh database file under t.TempDir with every entity migrated.
func NewDB(t *testing.T) db.Database {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	gdb, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(entities.AllModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	database := &db.GormDatabase{DB: gdb}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// SeedDevice registers a factory and device for tenant and returns the device.
func SeedDevice(t *testing.T, database db.Database, tenantID, deviceID string, active bool) *entities.Device {
	t.Helper()

	factory := &entities.Factory{TenantID: tenantID, Name: "Plant " + tenantID}
	if err := database.GetDB().Create(factory).Error; err != nil {
		t.Fatalf("seed factory: %v", err)
	}
	device := &entities.Device{
		TenantID:  tenantID,
		FactoryID: factory.ID,
		DeviceID:  deviceID,
		Name:      "Press " + deviceID,
		IsActive:  active,
	}
	if err := database.GetDB().Create(device).Error; err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return device
}
