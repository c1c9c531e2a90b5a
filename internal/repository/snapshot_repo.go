package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"routinedash/internal/model"
)

// SnapshotRepository 在 Redis 中保存每个用户最后一次已知的看板聚合
type SnapshotRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotRepository(rdb *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{rdb: rdb, ttl: ttl}
}

func snapshotKey(userID string) string {
	return "dashboard:snapshot:" + userID
}

type snapshotRecord struct {
	State   model.DashboardState `json:"state"`
	SavedAt time.Time            `json:"saved_at"`
}

func (r *SnapshotRepository) Save(ctx context.Context, userID string, state model.DashboardState) error {
	b, err := json.Marshal(snapshotRecord{State: state, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, snapshotKey(userID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save dashboard snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot and whether one exists.
func (r *SnapshotRepository) Load(ctx context.Context, userID string) (model.DashboardState, bool, error) {
	b, err := r.rdb.Get(ctx, snapshotKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.DashboardState{}, false, nil
		}
		return model.DashboardState{}, false, fmt.Errorf("failed to load dashboard snapshot: %w", err)
	}
	var rec snapshotRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.DashboardState{}, false, fmt.Errorf("corrupt dashboard snapshot: %w", err)
	}
	return rec.State, true, nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, userID string) error {
	return r.rdb.Del(ctx, snapshotKey(userID)).Err()
}
