// Package querycache holds the non-task collections the dashboard reads:
// habits, habit logs, schedule events and the dashboard aggregate.
package querycache

import (
	"strings"
	"sync"
	"time"

	"routinedash/internal/model"
)

func HabitsKey(userID string) string { return "habits/" + userID }

// HabitLogsKey 不带 habitID 时表示用户的全部打卡记录
func HabitLogsKey(userID, habitID string) string {
	if habitID == "" {
		return "habit-logs/" + userID
	}
	return "habit-logs/" + userID + "/" + habitID
}

func ScheduleKey(userID string) string  { return "schedule/" + userID }
func DashboardKey(userID string) string { return "dashboard/" + userID }

type entry[T any] struct {
	value     T
	stale     bool
	updatedAt time.Time
}

// Collection is a keyed cache of one value type with stale tracking.
type Collection[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
	now     func() time.Time
}

func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{entries: make(map[string]*entry[T]), now: time.Now}
}

// Get returns the cached value and whether it is fresh.
func (c *Collection[T]) Get(key string) (value T, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return value, false, false
	}
	return e.value, !e.stale, true
}

func (c *Collection[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[T]{value: value, updatedAt: c.now()}
}

// Update applies fn to the cached value under the lock. Missing keys are left alone.
func (c *Collection[T]) Update(key string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.value = fn(e.value)
	e.updatedAt = c.now()
	return true
}

// Invalidate marks key stale. Keys ending in "/" invalidate every key with that prefix.
func (c *Collection[T]) Invalidate(key string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var hit []string
	for k, e := range c.entries {
		if k == key || (strings.HasSuffix(key, "/") && strings.HasPrefix(k, key)) {
			e.stale = true
			hit = append(hit, k)
		}
	}
	return hit
}

func (c *Collection[T]) UpdatedAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.updatedAt, true
}

// Cache groups the collections of one service instance.
type Cache struct {
	Habits    *Collection[[]model.Habit]
	HabitLogs *Collection[[]model.HabitLog]
	Schedule  *Collection[[]model.ScheduleEvent]
	Dashboard *Collection[model.DashboardState]
}

func New() *Cache {
	return &Cache{
		Habits:    NewCollection[[]model.Habit](),
		HabitLogs: NewCollection[[]model.HabitLog](),
		Schedule:  NewCollection[[]model.ScheduleEvent](),
		Dashboard: NewCollection[model.DashboardState](),
	}
}

// InvalidateUser marks every collection of userID stale.
func (c *Cache) InvalidateUser(userID string) {
	c.Habits.Invalidate(HabitsKey(userID))
	c.HabitLogs.Invalidate(HabitLogsKey(userID, ""))
	c.HabitLogs.Invalidate(HabitLogsKey(userID, "") + "/")
	c.Schedule.Invalidate(ScheduleKey(userID))
	c.Dashboard.Invalidate(DashboardKey(userID))
}
