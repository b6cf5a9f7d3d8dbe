package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Redis configuration (rate limiting)
	Redis RedisConfig

	// Push notification transport configuration
	Push PushConfig

	// Booking engine configuration
	Booking BookingConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// JWTConfig holds JWT-related configuration.
// Tokens are issued by the external auth service; this backend only verifies them.
type JWTConfig struct {
	Secret string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// PushConfig holds push transport configuration
type PushConfig struct {
	Mode        string // "dev" logs pushes, "production" publishes them to RabbitMQ
	RabbitMQURL string
	Queue       string
}

// BookingConfig holds reservation engine settings
type BookingConfig struct {
	DefaultSeatCapacity   int
	SeatAssignMaxAttempts int
	Timezone              string
	ReminderSweepSchedule string // cron spec with seconds
	NotificationQueueSize int
	RateLimitRequests     int
	RateLimitWindow       time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Push: PushConfig{
			Mode:        getEnv("PUSH_MODE", "dev"),
			RabbitMQURL: getEnv("RABBITMQ_URL", ""),
			Queue:       getEnv("PUSH_QUEUE", "notifications.push"),
		},
		Booking: BookingConfig{
			DefaultSeatCapacity:   getEnvAsInt("DEFAULT_SEAT_CAPACITY", 20),
			SeatAssignMaxAttempts: getEnvAsInt("SEAT_ASSIGN_MAX_ATTEMPTS", 3),
			Timezone:              getEnv("BOOKING_TIMEZONE", "UTC"),
			ReminderSweepSchedule: getEnv("REMINDER_SWEEP_SCHEDULE", "0 */1 * * * *"),
			NotificationQueueSize: getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 256),
			RateLimitRequests:     getEnvAsInt("BOOKING_RATE_LIMIT_REQUESTS", 20),
			RateLimitWindow:       time.Duration(getEnvAsInt("BOOKING_RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Push.Mode {
	case "dev":
	case "production":
		if c.Push.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when PUSH_MODE is production")
		}
	default:
		return fmt.Errorf("invalid PUSH_MODE: %s (must be 'dev' or 'production')", c.Push.Mode)
	}

	if c.Booking.DefaultSeatCapacity <= 0 {
		return fmt.Errorf("DEFAULT_SEAT_CAPACITY must be greater than 0")
	}

	if c.Booking.SeatAssignMaxAttempts <= 0 {
		return fmt.Errorf("SEAT_ASSIGN_MAX_ATTEMPTS must be greater than 0")
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.Booking.Timezone, err)
	}

	return nil
}

// Location returns the time zone used to resolve departure-time labels
func (b BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
