package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{URL: "postgres://localhost/shuttle"},
		JWT:      JWTConfig{Secret: "secret"},
		Push:     PushConfig{Mode: "dev"},
		Booking: BookingConfig{
			DefaultSeatCapacity:   20,
			SeatAssignMaxAttempts: 3,
			Timezone:              "UTC",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL is required"},
		{"missing jwt secret", func(c *Config) { c.JWT.Secret = "" }, "JWT_SECRET is required"},
		{"production push without broker", func(c *Config) { c.Push.Mode = "production" }, "RABBITMQ_URL is required"},
		{"unknown push mode", func(c *Config) { c.Push.Mode = "fcm" }, "invalid PUSH_MODE"},
		{"zero capacity", func(c *Config) { c.Booking.DefaultSeatCapacity = 0 }, "DEFAULT_SEAT_CAPACITY"},
		{"zero attempts", func(c *Config) { c.Booking.SeatAssignMaxAttempts = 0 }, "SEAT_ASSIGN_MAX_ATTEMPTS"},
		{"bad timezone", func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, "invalid BOOKING_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shuttle")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DEFAULT_SEAT_CAPACITY", "12")
	t.Setenv("BOOKING_RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Booking.DefaultSeatCapacity)
	assert.Equal(t, 30*time.Second, cfg.Booking.RateLimitWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "dev", cfg.Push.Mode)
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "twelve")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}

func TestBookingConfig_Location(t *testing.T) {
	assert.Equal(t, time.UTC, BookingConfig{Timezone: "UTC"}.Location())
	assert.Equal(t, time.UTC, BookingConfig{Timezone: "nowhere"}.Location())
}
