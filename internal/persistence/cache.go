package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// BoardCache is a read-through cache of task board listings. It is a
// convenience projection over the authoritative store: mutations
// invalidate it instead of updating it in place.
type BoardCache interface {
	Get(ctx context.Context, key string) ([]domain.Task, bool)
	Set(ctx context.Context, key string, tasks []domain.Task)
	Invalidate(ctx context.Context, role domain.StaffRole)
}

// ReminderDeduper limits deadline-approaching notifications to once per
// hour per task.
type ReminderDeduper interface {
	ShouldSend(ctx context.Context, taskID string) bool
}

const boardCachePrefix = "board:"

type redisBoardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewBoardCache builds a Redis-backed board cache. Cache failures degrade
// to direct store reads, never to request errors.
func NewBoardCache(r *Redis, ttl time.Duration, logger *zap.Logger) BoardCache {
	if r == nil || r.Client == nil {
		return noopBoardCache{}
	}
	return &redisBoardCache{client: r.Client, ttl: ttl, logger: logger}
}

func (c *redisBoardCache) Get(ctx context.Context, key string) ([]domain.Task, bool) {
	raw, err := c.client.Get(ctx, boardCachePrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		c.logger.Warn("board cache decode failed", zap.Error(err))
		return nil, false
	}
	return tasks, true
}

func (c *redisBoardCache) Set(ctx context.Context, key string, tasks []domain.Task) {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, boardCachePrefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("board cache write failed", zap.Error(err))
	}
}

func (c *redisBoardCache) Invalidate(ctx context.Context, role domain.StaffRole) {
	pattern := boardCachePrefix + string(role) + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("board cache invalidate failed", zap.Error(err))
	}
}

type noopBoardCache struct{}

func (noopBoardCache) Get(context.Context, string) ([]domain.Task, bool) { return nil, false }
func (noopBoardCache) Set(context.Context, string, []domain.Task)       {}
func (noopBoardCache) Invalidate(context.Context, domain.StaffRole)     {}

type redisReminderDeduper struct {
	client *redis.Client
	window time.Duration
}

// NewReminderDeduper builds the Redis dedupe store. When Redis is not
// configured every reminder is allowed through; the notifications table
// still records what was sent.
func NewReminderDeduper(r *Redis, window time.Duration) ReminderDeduper {
	if r == nil || r.Client == nil {
		return allowAllDeduper{}
	}
	if window <= 0 {
		window = time.Hour
	}
	return &redisReminderDeduper{client: r.Client, window: window}
}

func (d *redisReminderDeduper) ShouldSend(ctx context.Context, taskID string) bool {
	key := fmt.Sprintf("reminder:%s", taskID)
	ok, err := d.client.SetNX(ctx, key, 1, d.window).Result()
	if err != nil {
		// fail open: a duplicate reminder beats a missed one
		return true
	}
	return ok
}

type allowAllDeduper struct{}

func (allowAllDeduper) ShouldSend(context.Context, string) bool { return true }
