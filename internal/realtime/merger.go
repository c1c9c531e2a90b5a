package realtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"routinedash/internal/model"
	"routinedash/internal/querycache"
	"routinedash/internal/taskstore"
	"routinedash/pkg/logger"
	"routinedash/pkg/metrics"
)

// Deduper 由 util.Deduper 实现（Redis SetNX）
type Deduper interface {
	AcquireOnce(ctx context.Context, scope, key string) bool
}

// SnapshotSaver persists the last merged aggregate.
type SnapshotSaver interface {
	Save(ctx context.Context, userID string, state model.DashboardState) error
}

// Merger is the single sink every realtime source feeds.
type Merger struct {
	cache       *querycache.Cache
	tasks       *taskstore.Store
	dedup       Deduper
	snapshots   SnapshotSaver
	defaultUser string
	logger      *zap.Logger
}

type MergerOption func(*Merger)

func WithDeduper(d Deduper) MergerOption {
	return func(m *Merger) { m.dedup = d }
}

func WithSnapshots(s SnapshotSaver) MergerOption {
	return func(m *Merger) { m.snapshots = s }
}

// WithDefaultUser is used for frames that carry no user id.
func WithDefaultUser(userID string) MergerOption {
	return func(m *Merger) { m.defaultUser = userID }
}

func NewMerger(cache *querycache.Cache, tasks *taskstore.Store, logger *zap.Logger, opts ...MergerOption) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Merger{cache: cache, tasks: tasks, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleRaw decodes a frame and applies it. userID is the connection's user,
// overridden by a user id inside the frame.
func (m *Merger) HandleRaw(ctx context.Context, source, userID string, raw []byte) (Event, error) {
	env, err := Decode(raw)
	if err != nil {
		metrics.IncrementRealtimeEvent(source, "malformed")
		return nil, err
	}

	user := env.UserID
	if user == "" {
		user = userID
	}
	if user == "" {
		user = m.defaultUser
	}
	if user == "" {
		return env.Event, fmt.Errorf("%w: no user for %s event", ErrMalformed, env.Event.EventType())
	}

	if env.ID != "" && m.dedup != nil && !m.dedup.AcquireOnce(ctx, "realtime", env.ID) {
		metrics.IncrementRealtimeEvent(source, "duplicate")
		return env.Event, nil
	}

	m.Apply(ctx, source, user, env.Event)
	return env.Event, nil
}

// Apply merges ev into the cached aggregate and, for task events, the task partitions.
func (m *Merger) Apply(ctx context.Context, source, userID string, ev Event) {
	log := logger.WithTrace(ctx, m.logger).With(
		zap.String("source", source),
		zap.String("user_id", userID),
		zap.String("type", ev.EventType()),
	)
	metrics.IncrementRealtimeEvent(source, eventLabel(ev))

	if _, ok := ev.(Unknown); ok {
		log.Debug("Ignoring unknown realtime event")
		return
	}

	key := querycache.DashboardKey(userID)
	merged := m.cache.Dashboard.Update(key, func(s model.DashboardState) model.DashboardState {
		return Merge(s, ev)
	})

	if e, ok := ev.(TaskUpdated); ok && m.tasks != nil {
		m.tasks.Apply(userID, taskstore.Toggle{ID: e.TaskID, Completed: e.Completed})
	}

	if !merged {
		log.Debug("No cached dashboard to merge into")
		return
	}
	log.Debug("Merged realtime event")

	if m.snapshots == nil {
		return
	}
	if state, _, ok := m.cache.Dashboard.Get(key); ok {
		if err := m.snapshots.Save(ctx, userID, state); err != nil {
			log.Warn("Failed to save dashboard snapshot", zap.Error(err))
		}
	}
}

func eventLabel(ev Event) string {
	if _, ok := ev.(Unknown); ok {
		return "unknown"
	}
	return ev.EventType()
}
