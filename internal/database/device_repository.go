package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DeviceRepository stores push device tokens per user
type DeviceRepository struct {
	db *sqlx.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert registers a device token for a user, refreshing it if already known
func (r *DeviceRepository) Upsert(ctx context.Context, userID, token, platform string) error {
	query := `
		INSERT INTO user_devices (user_id, token, platform, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, token)
		DO UPDATE SET platform = EXCLUDED.platform, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

// TokensForUser returns every device token registered for a user
func (r *DeviceRepository) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	tokens := []string{}
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT token FROM user_devices WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	return tokens, nil
}
