// Package mockdata is an in-memory dashboard backend for running without
// the productivity API.
package mockdata

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"routinedash/internal/model"
	"routinedash/internal/progress"
	"routinedash/internal/realtime"
)

// NotFoundError 与后端 404 的分类一致
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' was not found", e.Kind, e.ID)
}

func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// Store holds a single demo user's aggregate. Every mutation recomputes the
// progress block and emits the event the real backend would broadcast.
type Store struct {
	mu     sync.Mutex
	state  model.DashboardState
	notify func(userID string, ev realtime.Event)
}

func NewStore(now time.Time) *Store {
	return &Store{state: Seed(now)}
}

// OnChange registers the broadcast hook.
func (s *Store) OnChange(fn func(userID string, ev realtime.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

func (s *Store) Dashboard(ctx context.Context) (model.DashboardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *Store) ToggleChecklist(ctx context.Context, taskID string, completed bool) (model.DashboardState, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.state.Checklist {
		if s.state.Checklist[i].ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.DashboardState{}, &NotFoundError{Kind: "Task", ID: taskID}
	}
	s.state.Checklist[idx].Completed = completed
	s.state.Progress = progress.FromDashboard(s.state)
	out, notify := s.state.Clone(), s.notify
	s.mu.Unlock()

	if notify != nil {
		p := out.Progress
		notify(DefaultUser, realtime.TaskUpdated{TaskID: taskID, Completed: completed, Progress: &p})
	}
	return out, nil
}

func (s *Store) UpdateHabit(ctx context.Context, habitID string, update model.DashboardHabitUpdate) (model.DashboardState, error) {
	if update.CompletedToday < 0 {
		return model.DashboardState{}, fmt.Errorf("completed_today must be >= 0")
	}

	s.mu.Lock()
	idx := -1
	for i := range s.state.Habits {
		if s.state.Habits[i].ID == habitID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.DashboardState{}, &NotFoundError{Kind: "Habit", ID: habitID}
	}
	s.state.Habits[idx].CompletedToday = update.CompletedToday
	if update.Streak != nil {
		s.state.Habits[idx].Streak = *update.Streak
	}
	s.state.Progress = progress.FromDashboard(s.state)
	out, notify := s.state.Clone(), s.notify
	s.mu.Unlock()

	if notify != nil {
		p := out.Progress
		notify(DefaultUser, realtime.HabitUpdated{HabitID: habitID, CompletedToday: update.CompletedToday, Streak: update.Streak, Progress: &p})
	}
	return out, nil
}
