// Package dashboard serves the aggregate dashboard view: the cached state,
// optimistic checklist/habit updates and reconciliation after reconnects.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"routinedash/internal/model"
	"routinedash/internal/querycache"
	"routinedash/internal/realtime"
	"routinedash/pkg/logger"
	"routinedash/pkg/metrics"
	"routinedash/pkg/otel"
	"routinedash/pkg/util"
)

// Backend 由 apiclient.Client 与 mockdata.Store 实现
type Backend interface {
	Dashboard(ctx context.Context) (model.DashboardState, error)
	ToggleChecklist(ctx context.Context, taskID string, completed bool) (model.DashboardState, error)
	UpdateHabit(ctx context.Context, habitID string, update model.DashboardHabitUpdate) (model.DashboardState, error)
}

// SnapshotStore 由 repository.SnapshotRepository 实现
type SnapshotStore interface {
	Save(ctx context.Context, userID string, state model.DashboardState) error
	Load(ctx context.Context, userID string) (model.DashboardState, bool, error)
}

type validationError string

func (e validationError) Error() string    { return string(e) }
func (e validationError) Validation() bool { return true }

var ErrInvalidInput error = validationError("invalid input")

type Service struct {
	backend   Backend
	cache     *querycache.Cache
	snapshots SnapshotStore
	logger    *zap.Logger
}

func NewService(backend Backend, cache *querycache.Cache, snapshots SnapshotStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, cache: cache, snapshots: snapshots, logger: logger}
}

// Get returns the aggregate for userID. stale is true when the backend could not
// be reached and the last known state (memory, then snapshot) is served instead.
func (s *Service) Get(ctx context.Context, userID string) (model.DashboardState, bool, error) {
	key := querycache.DashboardKey(userID)
	cached, fresh, ok := s.cache.Dashboard.Get(key)
	if ok && fresh {
		return cached, false, nil
	}

	log := logger.WithTrace(ctx, s.logger).With(zap.String("user_id", userID))
	state, err := s.backend.Dashboard(ctx)
	if err == nil {
		s.cache.Dashboard.Set(key, state)
		s.save(ctx, userID, state, log)
		return state, false, nil
	}

	log.Warn("Failed to fetch dashboard",
		zap.String("error_kind", util.ClassifyError(err)),
		zap.Error(err),
	)
	if ok {
		return cached, true, nil
	}
	if s.snapshots != nil {
		snap, found, loadErr := s.snapshots.Load(ctx, userID)
		if loadErr != nil {
			log.Warn("Failed to load dashboard snapshot", zap.Error(loadErr))
		}
		if found {
			s.cache.Dashboard.Set(key, snap)
			s.cache.Dashboard.Invalidate(key)
			return snap, true, nil
		}
	}
	return model.DashboardState{}, false, err
}

// ToggleChecklist 乐观更新清单项，失败时回滚
func (s *Service) ToggleChecklist(ctx context.Context, userID, taskID string, completed bool) (model.DashboardState, error) {
	return s.run(ctx, userID, "checklist", realtime.TaskUpdated{TaskID: taskID, Completed: completed},
		func(ctx context.Context) (model.DashboardState, error) {
			return s.backend.ToggleChecklist(ctx, taskID, completed)
		})
}

func (s *Service) UpdateHabit(ctx context.Context, userID, habitID string, update model.DashboardHabitUpdate) (model.DashboardState, error) {
	if update.CompletedToday < 0 {
		return model.DashboardState{}, fmt.Errorf("%w: completed_today must be >= 0", ErrInvalidInput)
	}
	if update.Streak != nil && *update.Streak < 0 {
		return model.DashboardState{}, fmt.Errorf("%w: streak must be >= 0", ErrInvalidInput)
	}
	ev := realtime.HabitUpdated{HabitID: habitID, CompletedToday: update.CompletedToday, Streak: update.Streak}
	return s.run(ctx, userID, "habit", ev, func(ctx context.Context) (model.DashboardState, error) {
		return s.backend.UpdateHabit(ctx, habitID, update)
	})
}

func (s *Service) run(ctx context.Context, userID, kind string, ev realtime.Event, call func(context.Context) (model.DashboardState, error)) (model.DashboardState, error) {
	ctx, span := otel.StartSpan(ctx, "dashboard."+kind, trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	log := logger.WithTrace(ctx, s.logger).With(
		zap.String("user_id", userID),
		zap.String("kind", kind),
	)
	key := querycache.DashboardKey(userID)

	prev, _, had := s.cache.Dashboard.Get(key)
	if had {
		s.cache.Dashboard.Update(key, func(st model.DashboardState) model.DashboardState {
			return realtime.Merge(st, ev)
		})
	}

	state, err := call(ctx)
	if err != nil {
		if had {
			// 只回退本次修改的条目，调用期间合并进来的推送保留；之后标记过期等下次读取对齐
			if undo, ok := revertEvent(prev, ev); ok {
				s.cache.Dashboard.Update(key, func(st model.DashboardState) model.DashboardState {
					return realtime.Merge(st, undo)
				})
			}
			s.cache.Dashboard.Invalidate(key)
		}
		metrics.IncrementMutation(kind, "rolled_back")
		log.Warn("Dashboard update rejected, rolled back",
			zap.String("error_kind", util.ClassifyError(err)),
			zap.Error(err),
		)
		return model.DashboardState{}, err
	}

	metrics.IncrementMutation(kind, "committed")
	s.cache.Dashboard.Set(key, state)
	s.save(ctx, userID, state, log)
	log.Info("Dashboard updated")
	return state, nil
}

// revertEvent builds the event that puts the item touched by ev back to its
// value in prev.
func revertEvent(prev model.DashboardState, ev realtime.Event) (realtime.Event, bool) {
	switch e := ev.(type) {
	case realtime.TaskUpdated:
		for _, item := range prev.Checklist {
			if item.ID == e.TaskID {
				return realtime.TaskUpdated{TaskID: item.ID, Completed: item.Completed}, true
			}
		}
	case realtime.HabitUpdated:
		for _, h := range prev.Habits {
			if h.ID == e.HabitID {
				streak := h.Streak
				return realtime.HabitUpdated{HabitID: h.ID, CompletedToday: h.CompletedToday, Streak: &streak}, true
			}
		}
	}
	return nil, false
}

// Reconcile 重连后整体失效并重新拉取
func (s *Service) Reconcile(ctx context.Context, userID string) error {
	s.cache.Dashboard.Invalidate(querycache.DashboardKey(userID))
	_, stale, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if stale {
		return errors.New("dashboard still stale after reconcile")
	}
	return nil
}

func (s *Service) save(ctx context.Context, userID string, state model.DashboardState, log *zap.Logger) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, userID, state); err != nil {
		log.Warn("Failed to save dashboard snapshot", zap.Error(err))
	}
}
