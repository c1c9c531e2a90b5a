package querycache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"routinedash/internal/model"
)

func TestCollectionStaleLifecycle(t *testing.T) {
	c := NewCollection[[]model.Habit]()
	key := HabitsKey("u1")

	_, _, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, []model.Habit{{ID: "h1"}})
	v, fresh, ok := c.Get(key)
	assert.True(t, ok)
	assert.True(t, fresh)
	assert.Len(t, v, 1)

	assert.Equal(t, []string{key}, c.Invalidate(key))
	_, fresh, _ = c.Get(key)
	assert.False(t, fresh)
}

func TestInvalidatePrefix(t *testing.T) {
	c := NewCollection[[]model.HabitLog]()
	c.Set(HabitLogsKey("u1", "h1"), nil)
	c.Set(HabitLogsKey("u1", "h2"), nil)
	c.Set(HabitLogsKey("u2", "h1"), nil)

	hit := c.Invalidate(HabitLogsKey("u1", "") + "/")
	assert.ElementsMatch(t, []string{"habit-logs/u1/h1", "habit-logs/u1/h2"}, hit)

	_, fresh, _ := c.Get(HabitLogsKey("u2", "h1"))
	assert.True(t, fresh)
}

func TestUpdateMissingKey(t *testing.T) {
	c := NewCollection[model.DashboardState]()
	assert.False(t, c.Update(DashboardKey("u1"), func(s model.DashboardState) model.DashboardState { return s }))

	c.Set(DashboardKey("u1"), model.DashboardState{User: "Wendy"})
	assert.True(t, c.Update(DashboardKey("u1"), func(s model.DashboardState) model.DashboardState {
		s.Greeting = "Hi"
		return s
	}))
	v, _, _ := c.Get(DashboardKey("u1"))
	assert.Equal(t, "Hi", v.Greeting)
}

func TestInvalidateUser(t *testing.T) {
	c := New()
	c.Habits.Set(HabitsKey("u1"), nil)
	c.Schedule.Set(ScheduleKey("u1"), nil)
	c.Schedule.Set(ScheduleKey("u2"), nil)

	c.InvalidateUser("u1")

	_, fresh, _ := c.Habits.Get(HabitsKey("u1"))
	assert.False(t, fresh)
	_, fresh, _ = c.Schedule.Get(ScheduleKey("u2"))
	assert.True(t, fresh)
}
