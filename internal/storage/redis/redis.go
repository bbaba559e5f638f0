package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pricewatch/internal/models"
	"pricewatch/internal/storage"
)

// RedisRepo caches monitors so the read API does not hit Postgres for every
// lookup. Entries expire after DefaultTTL; scrapes do not invalidate them.
type RedisRepo struct {
	client     *redis.Client
	DefaultTTL time.Duration
}

func New(ctx context.Context, address string, db int, defaultTTL time.Duration) (*RedisRepo, error) {
	const op = "storage.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client:     rdb,
		DefaultTTL: defaultTTL,
	}, nil
}

func (r *RedisRepo) SaveMonitor(ctx context.Context, monitor models.Monitor) error {
	const op = "storage.redis.SaveMonitor"

	data, err := json.Marshal(monitor)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := monitorKey(monitor.ID)

	if err := r.client.Set(ctx, key, data, r.DefaultTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Monitor(ctx context.Context, monitorID int64) (models.Monitor, error) {
	const op = "storage.redis.Monitor"

	var monitor models.Monitor

	data, err := r.client.Get(ctx, monitorKey(monitorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return monitor, storage.ErrMonitorNotFound
		}

		return monitor, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, &monitor); err != nil {
		return monitor, fmt.Errorf("%s: %w", op, err)
	}

	return monitor, nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}

func monitorKey(monitorID int64) string {
	return fmt.Sprintf("monitor:%d", monitorID)
}
