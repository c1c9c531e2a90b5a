package mockdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routinedash/internal/model"
	"routinedash/internal/progress"
	"routinedash/internal/realtime"
	"routinedash/pkg/util"
)

var now = time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)

func TestSeed(t *testing.T) {
	state := Seed(now)
	assert.Equal(t, "Wendy", state.User)
	assert.Len(t, state.Checklist, 4)
	assert.Len(t, state.Habits, 3)
	assert.Len(t, state.Schedule, 3)
	assert.Equal(t, "2025-03-12", state.DailyLog.Date)
	assert.Equal(t, "Sunrise Striders", state.GroupProgress.GroupName)
	assert.Equal(t, 0, state.Progress.TasksCompleted)
	assert.Equal(t, 4, state.Progress.TasksTotal)
	assert.Equal(t, 0, state.Progress.HabitsCompleted)
	assert.Equal(t, 3, state.Progress.HabitsTotal)
}

func TestToggleRecomputesAndNotifies(t *testing.T) {
	s := NewStore(now)
	var events []realtime.Event
	s.OnChange(func(userID string, ev realtime.Event) {
		assert.Equal(t, DefaultUser, userID)
		events = append(events, ev)
	})

	state, err := s.ToggleChecklist(context.Background(), "task-deep-work", true)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Progress.TasksCompleted)
	assert.Equal(t, 14, progress.Completion(state.Progress))

	require.Len(t, events, 1)
	ev := events[0].(realtime.TaskUpdated)
	assert.Equal(t, "task-deep-work", ev.TaskID)
	assert.Equal(t, state.Progress, *ev.Progress)
}

func TestUpdateHabitMeetsGoal(t *testing.T) {
	s := NewStore(now)
	state, err := s.UpdateHabit(context.Background(), "habit-reading", habitUpdate(1, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Progress.HabitsCompleted)
	assert.Equal(t, 3, state.Habits[1].Streak)

	streak := 9
	state, err = s.UpdateHabit(context.Background(), "habit-reading", habitUpdate(1, &streak))
	require.NoError(t, err)
	assert.Equal(t, 9, state.Habits[1].Streak)
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	s := NewStore(now)
	_, err := s.ToggleChecklist(context.Background(), "nope", true)
	assert.Equal(t, util.KindNotFound, util.ClassifyError(err))

	_, err = s.UpdateHabit(context.Background(), "nope", habitUpdate(1, nil))
	assert.Equal(t, util.KindNotFound, util.ClassifyError(err))
}

func TestDashboardReturnsCopy(t *testing.T) {
	s := NewStore(now)
	state, _ := s.Dashboard(context.Background())
	state.Checklist[0].Completed = true
	fresh, _ := s.Dashboard(context.Background())
	assert.False(t, fresh.Checklist[0].Completed)
}

func habitUpdate(completed int, streak *int) model.DashboardHabitUpdate {
	return model.DashboardHabitUpdate{CompletedToday: completed, Streak: streak}
}
