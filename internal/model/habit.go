package model

import "time"

type HabitPeriod string

const (
	HabitPeriodDaily  HabitPeriod = "daily"
	HabitPeriodWeekly HabitPeriod = "weekly"
)

func (p HabitPeriod) Valid() bool {
	return p == HabitPeriodDaily || p == HabitPeriodWeekly
}

type HabitStatus string

const (
	HabitStatusCompleted HabitStatus = "completed"
	HabitStatusMissed    HabitStatus = "missed"
)

func (s HabitStatus) Valid() bool {
	return s == HabitStatusCompleted || s == HabitStatusMissed
}

type Habit struct {
	ID              string      `json:"_id"`
	UserID          string      `json:"user_id"`
	Name            string      `json:"name"`
	GoalRepetitions int         `json:"goal_repetitions"`
	GoalPeriod      HabitPeriod `json:"goal_period"`
	CreatedAt       time.Time   `json:"created_at"`
}

type HabitCreate struct {
	UserID          string      `json:"user_id"`
	Name            string      `json:"name"`
	GoalRepetitions int         `json:"goal_repetitions"`
	GoalPeriod      HabitPeriod `json:"goal_period"`
}

// HabitLog 每个习惯每天逻辑上只追加一条，UI 不强制唯一
type HabitLog struct {
	ID                   string      `json:"_id"`
	HabitID              string      `json:"habit_id"`
	UserID               string      `json:"user_id"`
	Date                 time.Time   `json:"date"`
	CompletedRepetitions int         `json:"completed_repetitions"`
	Status               HabitStatus `json:"status"`
}

type HabitLogCreate struct {
	UserID               string      `json:"user_id"`
	HabitID              string      `json:"habit_id"`
	Date                 time.Time   `json:"date"`
	CompletedRepetitions int         `json:"completed_repetitions"`
	Status               HabitStatus `json:"status"`
}

// WithDefaults fills the values the log form leaves implicit: one repetition, completed.
func (c HabitLogCreate) WithDefaults() HabitLogCreate {
	if c.CompletedRepetitions == 0 {
		c.CompletedRepetitions = 1
	}
	if c.Status == "" {
		c.Status = HabitStatusCompleted
	}
	return c
}
