package mutation

import (
	"context"

	"routinedash/internal/model"
	"routinedash/internal/querycache"
	"routinedash/internal/taskstore"
)

// LoadTasks returns the partition, fetching it when missing or stale.
func (c *Coordinator) LoadTasks(ctx context.Context, userID string, p taskstore.Partition) ([]model.Task, error) {
	key := taskstore.Key{UserID: userID, Partition: p}
	cached, ok := c.tasks.Get(key)
	if ok && !c.tasks.IsStale(key) {
		return cached, nil
	}
	tasks, err := c.fetchTasks(ctx, key)
	if err != nil && ok {
		return cached, nil
	}
	return tasks, err
}

func (c *Coordinator) fetchTasks(ctx context.Context, key taskstore.Key) ([]model.Task, error) {
	tasks, err := c.backend.ListTasks(ctx, key.UserID, key.Partition.Filter())
	if err != nil {
		return nil, err
	}
	c.tasks.Replace(key, tasks)
	return tasks, nil
}

func (c *Coordinator) Habits(ctx context.Context, userID string) ([]model.Habit, error) {
	return readThrough(c.cache.Habits, querycache.HabitsKey(userID), func() ([]model.Habit, error) {
		return c.backend.ListHabits(ctx, userID)
	})
}

// HabitLogs 可选按 habitID 过滤
func (c *Coordinator) HabitLogs(ctx context.Context, userID, habitID string) ([]model.HabitLog, error) {
	return readThrough(c.cache.HabitLogs, querycache.HabitLogsKey(userID, habitID), func() ([]model.HabitLog, error) {
		return c.backend.ListHabitLogs(ctx, userID, habitID)
	})
}

func (c *Coordinator) Schedule(ctx context.Context, userID string) ([]model.ScheduleEvent, error) {
	return readThrough(c.cache.Schedule, querycache.ScheduleKey(userID), func() ([]model.ScheduleEvent, error) {
		return c.backend.ListScheduleEvents(ctx, userID)
	})
}

// readThrough 缓存新鲜则直接返回；拉取失败时退回旧值
func readThrough[T any](col *querycache.Collection[T], key string, fetch func() (T, error)) (T, error) {
	cached, fresh, ok := col.Get(key)
	if ok && fresh {
		return cached, nil
	}
	v, err := fetch()
	if err != nil {
		if ok {
			return cached, nil
		}
		return v, err
	}
	col.Set(key, v)
	return v, nil
}
