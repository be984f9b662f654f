// seed registers a development factory with a few devices and prints a token
// for calling the API as that tenant. Devices that already exist are skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"iot-monitor/confs"
	"iot-monitor/db"
	"iot-monitor/entities"
	"iot-monitor/handlers/middleware"
	"iot-monitor/repositories"

	"go.uber.org/zap"
)

func main() {
	tenant := flag.String("tenant", "tenant-dev", "Tenant id to seed")
	userID := flag.String("user", "dev-user-001", "User id placed in the issued token")
	count := flag.Int("devices", 3, "Number of devices (DEV-1..DEV-n)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Lifetime of the issued token")
	flag.Parse()

	cfg, err := confs.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	database, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	devices := repositories.NewDevicePgRepository(database)
	factory := &entities.Factory{TenantID: *tenant, Name: "Dev Plant"}
	created := 0
	for i := 1; i <= *count; i++ {
		deviceID := fmt.Sprintf("DEV-%d", i)
		existing, err := devices.ResolveDevice(ctx, *tenant, deviceID)
		if err != nil {
			log.Fatalf("lookup %s: %v", deviceID, err)
		}
		if existing != nil {
			continue
		}
		if factory.ID == "" {
			if err := devices.CreateFactory(ctx, factory); err != nil {
				log.Fatalf("create factory: %v", err)
			}
		}
		device := &entities.Device{
			TenantID:  *tenant,
			FactoryID: factory.ID,
			DeviceID:  deviceID,
			Name:      fmt.Sprintf("Press %d", i),
			IsActive:  true,
		}
		if err := devices.Create(ctx, device); err != nil {
			log.Fatalf("create %s: %v", deviceID, err)
		}
		created++
	}
	log.Printf("seeded %d device(s) for tenant %s", created, *tenant)

	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	token, err := auth.Issue(middleware.Principal{TenantID: *tenant, UserID: *userID, Role: "admin"}, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
