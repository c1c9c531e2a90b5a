package model

import "time"

type ScheduleEvent struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// PlanTask 待排程任务及时长
type PlanTask struct {
	TaskID          string `json:"_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

type PlanWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type PlanRequest struct {
	UserID       string     `json:"user_id"`
	Tasks        []PlanTask `json:"tasks"`
	Window       PlanWindow `json:"window"`
	BlockMinutes int        `json:"block_minutes,omitempty"`
}

type PlanBlock struct {
	TaskID    string    `json:"task_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type PlanResponse struct {
	Blocks   []PlanBlock `json:"blocks"`
	Overflow []string    `json:"overflow"`
}

type BulkScheduleBlock struct {
	Summary     string    `json:"summary"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
}

type BulkScheduleRequest struct {
	UserID string              `json:"user_id"`
	Blocks []BulkScheduleBlock `json:"blocks"`
}

type BulkScheduleResponse struct {
	Inserted int             `json:"inserted"`
	Items    []ScheduleEvent `json:"items"`
}

// ReplanRequest POST /v1/tasks/replan（backlog healer）
type ReplanRequest struct {
	UserID string `json:"user_id"`
	DryRun bool   `json:"dry_run"`
}

type ReplanProposal struct {
	TaskID     string     `json:"task_id"`
	OldDueDate *time.Time `json:"old_due_date"`
	NewDueDate time.Time  `json:"new_due_date"`
}

type ReplanResponse struct {
	Proposals []ReplanProposal `json:"proposals"`
	Applied   int              `json:"applied"`
}
