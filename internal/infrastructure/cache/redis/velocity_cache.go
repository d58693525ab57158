package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// VelocityCache tracks per-client transaction timestamps in a sorted
// set so the frequency rule can count recent activity without a
// database scan. Entries are scored by unix nanos and trimmed to the
// retention window on every write.
type VelocityCache struct {
	client    *redis.Client
	retention time.Duration
	log       *zap.Logger
}

func NewVelocityCache(client *redis.Client, retention time.Duration, log *zap.Logger) *VelocityCache {
	if retention <= 0 {
		retention = time.Hour
	}
	return &VelocityCache{client: client, retention: retention, log: log}
}

func velocityKey(clientID uuid.UUID) string {
	return fmt.Sprintf("velocity:client:%s", clientID)
}

// Record registers one transaction occurrence for the client and trims
// entries older than the retention window.
func (c *VelocityCache) Record(ctx context.Context, clientID, transactionID uuid.UUID, at time.Time) error {
	key := velocityKey(clientID)
	cutoff := at.Add(-c.retention)

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixNano()),
		Member: transactionID.String(),
	})
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.Expire(ctx, key, c.retention*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record velocity: %w", err)
	}
	return nil
}

// CountSince returns how many transactions the client initiated at or
// after the given instant.
func (c *VelocityCache) CountSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int64, error) {
	key := velocityKey(clientID)
	count, err := c.client.ZCount(ctx, key,
		fmt.Sprintf("%d", since.UnixNano()), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count velocity: %w", err)
	}
	return count, nil
}
