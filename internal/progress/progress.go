// Package progress derives completion figures from already-fetched tasks,
// habits and habit logs. Nothing here performs I/O.
package progress

import (
	"math"
	"time"

	"routinedash/internal/model"
)

// Completion returns round(100*(tc+hc)/(tt+ht)); 0 when there is nothing to count.
func Completion(s model.ProgressSummary) int {
	total := s.TasksTotal + s.HabitsTotal
	if total <= 0 {
		return 0
	}
	done := s.TasksCompleted + s.HabitsCompleted
	return int(math.Round(100 * float64(done) / float64(total)))
}

// Summarize counts tasks and habits, optionally restricted to rng.
//
// A task is bucketed by its due date, or by now when it has none. A habit
// counts as completed when its completed logs inside the range reach its
// goal. Logs without a usable date are ignored.
func Summarize(tasks []model.Task, habits []model.Habit, logs []model.HabitLog, rng *Range, now time.Time) model.ProgressSummary {
	var s model.ProgressSummary

	for _, t := range tasks {
		at := now
		if t.DueDate != nil && !t.DueDate.IsZero() {
			at = *t.DueDate
		}
		if rng != nil && !rng.Contains(at) {
			continue
		}
		s.TasksTotal++
		if t.IsCompleted {
			s.TasksCompleted++
		}
	}

	reps := make(map[string]int)
	for _, l := range logs {
		if l.Date.IsZero() || l.Status != model.HabitStatusCompleted {
			continue
		}
		if rng != nil && !rng.Contains(l.Date) {
			continue
		}
		reps[l.HabitID] += l.CompletedRepetitions
	}

	s.HabitsTotal = len(habits)
	for _, h := range habits {
		goal := h.GoalRepetitions
		if goal < 1 {
			goal = 1
		}
		if reps[h.ID] >= goal {
			s.HabitsCompleted++
		}
	}
	return s
}

// FromDashboard recomputes the aggregate's progress block: a checklist item
// counts when completed, a habit when completed_today reaches goal_per_day.
func FromDashboard(state model.DashboardState) model.ProgressSummary {
	s := model.ProgressSummary{
		TasksTotal:  len(state.Checklist),
		HabitsTotal: len(state.Habits),
	}
	for _, t := range state.Checklist {
		if t.Completed {
			s.TasksCompleted++
		}
	}
	for _, h := range state.Habits {
		if h.CompletedToday >= h.GoalPerDay {
			s.HabitsCompleted++
		}
	}
	return s
}

// ByPriority groups open tasks by priority; completed tasks go under "done".
func ByPriority(tasks []model.Task) map[string][]model.Task {
	out := map[string][]model.Task{
		string(model.PriorityHigh):   {},
		string(model.PriorityMedium): {},
		string(model.PriorityLow):    {},
		"done":                       {},
	}
	for _, t := range tasks {
		if t.IsCompleted {
			out["done"] = append(out["done"], t)
			continue
		}
		p := string(t.Priority.OrDefault())
		out[p] = append(out[p], t)
	}
	return out
}
