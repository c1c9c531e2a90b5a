// Package mutation runs optimistic task and habit mutations: patch the local
// store, call the backend, roll the task back on failure, then refetch
// server truth either way.
package mutation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"routinedash/internal/model"
	"routinedash/internal/querycache"
	"routinedash/internal/taskstore"
	"routinedash/pkg/logger"
	"routinedash/pkg/metrics"
	"routinedash/pkg/outbox"
	"routinedash/pkg/trace"
	"routinedash/pkg/util"
)

// Backend 是协调器需要的后端调用，由 apiclient.Client 实现
type Backend interface {
	ListTasks(ctx context.Context, userID string, completed *bool) ([]model.Task, error)
	CreateTask(ctx context.Context, in model.TaskCreate) (model.Task, error)
	SetTaskCompleted(ctx context.Context, taskID string, completed bool) (model.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, taskID string) error

	ListHabits(ctx context.Context, userID string) ([]model.Habit, error)
	CreateHabit(ctx context.Context, in model.HabitCreate) (model.Habit, error)
	ListHabitLogs(ctx context.Context, userID, habitID string) ([]model.HabitLog, error)
	CreateHabitLog(ctx context.Context, in model.HabitLogCreate) (model.HabitLog, error)
	ListScheduleEvents(ctx context.Context, userID string) ([]model.ScheduleEvent, error)
}

// Journal records each mutation; outbox.Repository implements it.
type Journal interface {
	Begin(ctx context.Context, e *outbox.Entry) error
	Settle(ctx context.Context, id, status, errMsg string) error
}

type Coordinator struct {
	tasks   *taskstore.Store
	cache   *querycache.Cache
	backend Backend
	journal Journal
	logger  *zap.Logger
}

func NewCoordinator(tasks *taskstore.Store, cache *querycache.Cache, backend Backend, journal Journal, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		tasks:   tasks,
		cache:   cache,
		backend: backend,
		journal: journal,
		logger:  logger,
	}
}

func (c *Coordinator) Tasks() *taskstore.Store  { return c.tasks }
func (c *Coordinator) Cache() *querycache.Cache { return c.cache }

// ToggleTask marks a task complete or incomplete.
func (c *Coordinator) ToggleTask(ctx context.Context, userID, taskID string, completed bool) error {
	m := taskstore.Toggle{ID: taskID, Completed: completed}
	payload := map[string]any{"is_completed": completed}
	return c.run(ctx, userID, m, payload, func(ctx context.Context) error {
		_, err := c.backend.SetTaskCompleted(ctx, taskID, completed)
		return err
	})
}

// UpdateTask changes priority and/or due date. A patch that also carries a
// completion flag is applied as a toggle first so partitions stay consistent.
func (c *Coordinator) UpdateTask(ctx context.Context, userID, taskID string, patch model.TaskPatch) error {
	if patch.Empty() {
		return ErrEmptyPatch
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidInput, *patch.Priority)
	}

	var m taskstore.Mutation = taskstore.Patch{ID: taskID, Patch: patch}
	if patch.IsCompleted != nil {
		rest := patch
		rest.IsCompleted = nil
		m = taskstore.Batch{taskstore.Toggle{ID: taskID, Completed: *patch.IsCompleted}, taskstore.Patch{ID: taskID, Patch: rest}}
	}
	return c.run(ctx, userID, m, patch, func(ctx context.Context) error {
		_, err := c.backend.UpdateTask(ctx, taskID, patch)
		return err
	})
}

func (c *Coordinator) DeleteTask(ctx context.Context, userID, taskID string) error {
	return c.run(ctx, userID, taskstore.Remove{ID: taskID}, nil, func(ctx context.Context) error {
		return c.backend.DeleteTask(ctx, taskID)
	})
}

// CreateTask is not optimistic: the new task shows up after the refetch.
func (c *Coordinator) CreateTask(ctx context.Context, in model.TaskCreate) (model.Task, error) {
	if in.Description == "" {
		return model.Task{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return model.Task{}, fmt.Errorf("%w: priority %q", ErrInvalidInput, in.Priority)
	}

	task, err := c.backend.CreateTask(ctx, in)
	if err != nil {
		metrics.IncrementMutation("create", "failed")
		return model.Task{}, err
	}
	metrics.IncrementMutation("create", "committed")
	c.refetchQuietly(ctx, in.UserID)
	return task, nil
}

// CreateHabit 创建习惯，成功后让 habits 失效
func (c *Coordinator) CreateHabit(ctx context.Context, in model.HabitCreate) (model.Habit, error) {
	if in.Name == "" {
		return model.Habit{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.GoalRepetitions <= 0 {
		in.GoalRepetitions = 1
	}
	if in.GoalPeriod == "" {
		in.GoalPeriod = model.HabitPeriodDaily
	}
	if !in.GoalPeriod.Valid() {
		return model.Habit{}, fmt.Errorf("%w: goal_period %q", ErrInvalidInput, in.GoalPeriod)
	}

	habit, err := c.backend.CreateHabit(ctx, in)
	if err != nil {
		metrics.IncrementMutation("habit_create", "failed")
		return model.Habit{}, err
	}
	metrics.IncrementMutation("habit_create", "committed")
	c.cache.Habits.Invalidate(querycache.HabitsKey(in.UserID))
	return habit, nil
}

// LogHabit 追加一条打卡记录，成功后让 habits 与 habit-logs 失效
func (c *Coordinator) LogHabit(ctx context.Context, in model.HabitLogCreate) (model.HabitLog, error) {
	if in.HabitID == "" {
		return model.HabitLog{}, fmt.Errorf("%w: habit_id is required", ErrInvalidInput)
	}
	in = in.WithDefaults()
	if !in.Status.Valid() {
		return model.HabitLog{}, fmt.Errorf("%w: status %q", ErrInvalidInput, in.Status)
	}

	log, err := c.backend.CreateHabitLog(ctx, in)
	if err != nil {
		metrics.IncrementMutation("habit_log", "failed")
		return model.HabitLog{}, err
	}
	metrics.IncrementMutation("habit_log", "committed")
	c.cache.HabitLogs.Invalidate(querycache.HabitLogsKey(in.UserID, ""))
	c.cache.HabitLogs.Invalidate(querycache.HabitLogsKey(in.UserID, "") + "/")
	c.cache.Habits.Invalidate(querycache.HabitsKey(in.UserID))
	return log, nil
}

// run 乐观修改的公共流程：快照、应用、调用后端、失败回滚，最后刷新
func (c *Coordinator) run(ctx context.Context, userID string, m taskstore.Mutation, payload any, call func(context.Context) error) error {
	log := logger.WithTrace(ctx, c.logger).With(
		zap.String("user_id", userID),
		zap.String("task_id", m.TaskID()),
		zap.String("kind", m.Kind()),
	)
	log.Debug("Applying optimistic mutation")

	entry := c.begin(ctx, userID, m, payload, log)
	snap := c.tasks.Apply(userID, m)

	if err := call(ctx); err != nil {
		// 只回退本任务，期间已提交的其他修改保留；随后再拉一次服务端数据对齐
		c.tasks.Rollback(snap, m.TaskID())
		metrics.IncrementMutation(m.Kind(), "rolled_back")
		c.settle(ctx, entry, outbox.StatusRolledBack, err.Error(), log)
		log.Warn("Mutation rejected, rolled back",
			zap.Int("restored_partitions", len(snap.Keys())),
			zap.String("error_kind", util.ClassifyError(err)),
			zap.Error(err),
		)
		c.refetchQuietly(ctx, userID)
		return err
	}

	metrics.IncrementMutation(m.Kind(), "committed")
	c.settle(ctx, entry, outbox.StatusCommitted, "", log)
	log.Info("Mutation committed")

	c.refetchQuietly(ctx, userID)
	return nil
}

func (c *Coordinator) begin(ctx context.Context, userID string, m taskstore.Mutation, payload any, log *zap.Logger) *outbox.Entry {
	if c.journal == nil {
		return nil
	}
	body := map[string]any{"payload": payload}
	if traceID := trace.FromContext(ctx); traceID != "" {
		body["trace_id"] = traceID
	}
	entry, err := outbox.NewEntry(userID, m.Kind(), m.TaskID(), body)
	if err == nil {
		err = c.journal.Begin(ctx, entry)
	}
	if err != nil {
		log.Warn("Failed to journal mutation", zap.Error(err))
		return nil
	}
	return entry
}

func (c *Coordinator) settle(ctx context.Context, entry *outbox.Entry, status, errMsg string, log *zap.Logger) {
	if c.journal == nil || entry == nil {
		return
	}
	if err := c.journal.Settle(context.WithoutCancel(ctx), entry.ID, status, errMsg); err != nil {
		log.Warn("Failed to settle journal entry", zap.String("entry_id", entry.ID), zap.Error(err))
	}
}

// Refetch invalidates every loaded task partition of userID and reloads each.
func (c *Coordinator) Refetch(ctx context.Context, userID string) error {
	var errs []error
	for _, key := range c.tasks.Invalidate(userID) {
		if _, err := c.fetchTasks(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("refetch %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Coordinator) refetchQuietly(ctx context.Context, userID string) {
	if err := c.Refetch(ctx, userID); err != nil {
		logger.WithTrace(ctx, c.logger).Warn("Refetch after mutation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
