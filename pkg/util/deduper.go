package util

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper 基于 Redis SetNX 的去重；rdb 为 nil 时全部放行
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{rdb: rdb, ttl: ttl, logger: logger}
}

// AcquireOnce returns true the first time scope+key is seen within the TTL.
func (d *Deduper) AcquireOnce(ctx context.Context, scope, key string) bool {
	if d == nil || d.rdb == nil {
		return true
	}
	dedupKey := "dedup:" + scope + ":" + key

	ok, err := d.rdb.SetNX(ctx, dedupKey, 1, d.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止处理
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("scope", scope),
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Debug("Skipped duplicated event",
			zap.String("scope", scope),
			zap.String("dedup_key", dedupKey),
		)
	}
	return ok
}
