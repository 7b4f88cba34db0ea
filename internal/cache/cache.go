// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client. Nil when Redis is not configured; callers
// must check before publishing.
var Rdb *redis.Client

// roundQueueKey is the list the historian consumer drains.
const roundQueueKey = "breach:round_actions"

// RoundActionRecord is one queued entry describing a duel event for the
// historian/replay consumer.
type RoundActionRecord struct {
	DuelID        uuid.UUID              `json:"duelId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"` // Nil for duel-level events.
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload,omitempty"`
	Timestamp     int64                  `json:"timestamp"` // Unix milliseconds.
}

// InitRedis connects the shared client and verifies the connection with a
// ping. An empty addr leaves Rdb nil and the queue disabled.
func InitRedis(ctx context.Context, addr string) error {
	if addr == "" {
		logrus.Info("REDIS_ADDR not set; round action queue disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	Rdb = client
	logrus.WithField("addr", addr).Info("connected to redis")
	return nil
}

// PublishRoundAction pushes one record onto the historian queue.
func PublishRoundAction(ctx context.Context, rec RoundActionRecord) error {
	if Rdb == nil {
		return fmt.Errorf("redis client not initialized")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal round action: %w", err)
	}
	if err := Rdb.RPush(ctx, roundQueueKey, data).Err(); err != nil {
		return fmt.Errorf("rpush round action: %w", err)
	}
	return nil
}
