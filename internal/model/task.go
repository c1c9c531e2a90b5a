package model

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// OrDefault 未设置优先级的任务按 medium 展示
func (p Priority) OrDefault() Priority {
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

type Task struct {
	ID          string     `json:"_id"`
	UserID      string     `json:"user_id"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	DueDate     *time.Time `json:"due_date"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskCreate POST /v1/tasks
type TaskCreate struct {
	UserID      string     `json:"user_id"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
}

// TaskPatch PATCH /v1/tasks/{id}；nil 字段不修改
type TaskPatch struct {
	IsCompleted *bool      `json:"is_completed,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	// ClearDueDate 显式清空截止日期
	ClearDueDate bool `json:"-"`
}

func (p TaskPatch) Empty() bool {
	return p.IsCompleted == nil && p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}
