package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/veloro/possync/internal/models"
)

const (
	presenceKeyPrefix = "presence:"
	presenceTTL       = 5 * time.Minute // a device counts as online while it keeps syncing
)

type RedisPresenceRepository struct {
	client *redis.Client
}

func NewRedisPresenceRepository(client *redis.Client) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client}
}

// SetPresence records a device heartbeat with automatic TTL. Push and pull
// both refresh it, so presence reflects actual sync traffic.
func (r *RedisPresenceRepository) SetPresence(ctx context.Context, presence *models.Presence) error {
	presence.LastSeen = time.Now()

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	key := presenceKey(presence.DeviceID)
	if err := r.client.Set(ctx, key, data, presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (r *RedisPresenceRepository) GetPresence(ctx context.Context, deviceID uuid.UUID) (*models.Presence, error) {
	data, err := r.client.Get(ctx, presenceKey(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		// No heartbeat within the TTL means the device is offline.
		return &models.Presence{
			DeviceID: deviceID,
			Status:   string(models.StatusOffline),
			LastSeen: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

func presenceKey(deviceID uuid.UUID) string {
	return presenceKeyPrefix + deviceID.String()
}
