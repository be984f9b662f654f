package confs

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds the server settings read from the environment.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	// DBURL wins over the individual DB_* parameters when set.
	DBURL          string `mapstructure:"DB_URL"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBAutoMigrate  bool   `mapstructure:"DB_AUTO_MIGRATE"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	CORSOrigin string `mapstructure:"CORS_ORIGIN"`

	ExportMaxRecords    int64  `mapstructure:"EXPORT_MAX_RECORDS"`
	ExportTTLSeconds    int    `mapstructure:"EXPORT_SIGNED_URL_EXPIRES"`
	ExportDir           string `mapstructure:"EXPORT_DIR"`
	ExportWorkers       int    `mapstructure:"EXPORT_WORKERS"`
	ExportSweepSchedule string `mapstructure:"EXPORT_SWEEP_SCHEDULE"`

	// AnalyticsTimezone is the IANA zone used to cut day, week and month buckets.
	AnalyticsTimezone string `mapstructure:"ANALYTICS_TIMEZONE"`

	// RedisURL empty keeps device presence in process memory.
	RedisURL           string `mapstructure:"REDIS_URL"`
	PresenceTTLSeconds int    `mapstructure:"DEVICE_PRESENCE_TTL"`
}

// LoadConfig loads environment variables from a .env file if present
// and builds a validated Config from them.
func LoadConfig() (*Config, error) {
	// Load .env if it exists; ignore error if file not found
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("warning: could not load .env: %v", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:3536")
	v.SetDefault("DB_URL", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("EXPORT_MAX_RECORDS", 100000)
	v.SetDefault("EXPORT_SIGNED_URL_EXPIRES", 3600)
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_WORKERS", 4)
	v.SetDefault("EXPORT_SWEEP_SCHEDULE", "@every 10m")
	v.SetDefault("ANALYTICS_TIMEZONE", "UTC")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DEVICE_PRESENCE_TTL", 300)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 characters")
	}
	if c.ExportMaxRecords <= 0 {
		return errors.New("config: EXPORT_MAX_RECORDS must be positive")
	}
	if c.ExportTTLSeconds <= 0 {
		return errors.New("config: EXPORT_SIGNED_URL_EXPIRES must be positive")
	}
	if c.ExportWorkers <= 0 {
		return errors.New("config: EXPORT_WORKERS must be positive")
	}
	if c.ExportDir == "" {
		return errors.New("config: EXPORT_DIR must be set")
	}
	if _, err := cron.ParseStandard(c.ExportSweepSchedule); err != nil {
		return errors.New("config: EXPORT_SWEEP_SCHEDULE is not a valid cron spec")
	}
	if _, err := time.LoadLocation(c.AnalyticsTimezone); err != nil {
		return errors.New("config: ANALYTICS_TIMEZONE is not a known time zone")
	}
	if c.PresenceTTLSeconds <= 0 {
		return errors.New("config: DEVICE_PRESENCE_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// ExportTTL is how long a completed export artifact stays downloadable.
func (c *Config) ExportTTL() time.Duration {
	return time.Duration(c.ExportTTLSeconds) * time.Second
}

// PresenceTTL is how long a device counts as online after its last session.
func (c *Config) PresenceTTL() time.Duration {
	return time.Duration(c.PresenceTTLSeconds) * time.Second
}

// Location returns the analytics time zone; validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AnalyticsTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
