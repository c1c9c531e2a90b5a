package realtime

import (
	"routinedash/internal/model"
	"routinedash/internal/progress"
)

// Merge applies ev to a copy of state. Unknown events and ids that are not
// in the aggregate leave the state as it was. When the event carries no
// progress block the snapshot is recomputed from the merged state.
func Merge(state model.DashboardState, ev Event) model.DashboardState {
	switch e := ev.(type) {
	case TaskUpdated:
		next := state.Clone()
		found := false
		for i := range next.Checklist {
			if next.Checklist[i].ID == e.TaskID {
				next.Checklist[i].Completed = e.Completed
				found = true
			}
		}
		if !found && e.Progress == nil {
			return state
		}
		next.Progress = progressOf(next, e.Progress)
		return next
	case HabitUpdated:
		next := state.Clone()
		found := false
		for i := range next.Habits {
			if next.Habits[i].ID == e.HabitID {
				next.Habits[i].CompletedToday = e.CompletedToday
				if e.Streak != nil {
					next.Habits[i].Streak = *e.Streak
				}
				found = true
			}
		}
		if !found && e.Progress == nil {
			return state
		}
		next.Progress = progressOf(next, e.Progress)
		return next
	}
	return state
}

func progressOf(state model.DashboardState, pushed *model.ProgressSummary) model.ProgressSummary {
	if pushed != nil {
		return *pushed
	}
	return progress.FromDashboard(state)
}
