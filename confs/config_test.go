package confs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3536", cfg.HTTPAddr)
	assert.Equal(t, int64(100000), cfg.ExportMaxRecords)
	assert.Equal(t, time.Hour, cfg.ExportTTL())
	assert.Equal(t, 4, cfg.ExportWorkers)
	assert.Equal(t, "UTC", cfg.Location().String())
	assert.Equal(t, 5*time.Minute, cfg.PresenceTTL())
	assert.True(t, cfg.DBAutoMigrate)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("EXPORT_MAX_RECORDS", "10")
	t.Setenv("EXPORT_SIGNED_URL_EXPIRES", "60")
	t.Setenv("ANALYTICS_TIMEZONE", "Europe/Berlin")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(10), cfg.ExportMaxRecords)
	assert.Equal(t, time.Minute, cfg.ExportTTL())
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"zero max records", map[string]string{"EXPORT_MAX_RECORDS": "0"}, "EXPORT_MAX_RECORDS"},
		{"bad timezone", map[string]string{"ANALYTICS_TIMEZONE": "Mars/Olympus"}, "ANALYTICS_TIMEZONE"},
		{"bad schedule", map[string]string{"EXPORT_SWEEP_SCHEDULE": "every so often"}, "EXPORT_SWEEP_SCHEDULE"},
		{"no workers", map[string]string{"EXPORT_WORKERS": "0"}, "EXPORT_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
