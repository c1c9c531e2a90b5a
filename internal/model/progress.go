package model

// ProgressSummary 派生统计，不持久化
type ProgressSummary struct {
	TasksCompleted  int `json:"tasks_completed"`
	TasksTotal      int `json:"tasks_total"`
	HabitsCompleted int `json:"habits_completed"`
	HabitsTotal     int `json:"habits_total"`
}

type ListResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}
