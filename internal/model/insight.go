package model

// DailyInsight / MonthlyInsight 由后端预先生成
type DailyInsight struct {
	UserID   string   `json:"user_id"`
	Date     string   `json:"date"`
	Headline string   `json:"headline"`
	Summary  string   `json:"summary"`
	Bullets  []string `json:"bullets"`
	Cached   bool     `json:"cached"`
}

type MonthlyInsight struct {
	UserID   string   `json:"user_id"`
	Month    string   `json:"month"`
	Headline string   `json:"headline"`
	Summary  string   `json:"summary"`
	Bullets  []string `json:"bullets"`
	Cached   bool     `json:"cached"`
}

// Summary GET /v1/summary，语音助手播报用
type Summary struct {
	Speech            string `json:"speech"`
	TasksCount        int    `json:"tasks_count"`
	EventsCount       int    `json:"events_count"`
	HabitsLoggedToday int    `json:"habits_logged_today"`
}

type AIIntent string

const (
	IntentTaskImprove      AIIntent = "task_improve"
	IntentHabitImprove     AIIntent = "habit_improve"
	IntentScheduleOptimize AIIntent = "schedule_optimize"
	IntentDashboardPlan    AIIntent = "dashboard_plan"
)

type AIPatchRef struct {
	Endpoint string         `json:"endpoint"`
	Method   string         `json:"method,omitempty"`
	Body     map[string]any `json:"body,omitempty"`
}

type AISuggestion struct {
	Title       string         `json:"title"`
	Diff        map[string]any `json:"diff,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
	ApplyPatch  AIPatchRef     `json:"apply_patch"`
}

type AISuggestRequest struct {
	UserID  string         `json:"user_id"`
	Intent  AIIntent       `json:"intent"`
	Context map[string]any `json:"context,omitempty"`
}

type AISuggestResponse struct {
	Suggestions []AISuggestion `json:"suggestions"`
}

type AIFeedback struct {
	UserID       string `json:"user_id"`
	Intent       string `json:"intent"`
	SuggestionID string `json:"suggestion_id,omitempty"`
	Accepted     bool   `json:"accepted"`
	Comment      string `json:"comment,omitempty"`
}

type SplitRequest struct {
	UserID      string `json:"user_id"`
	Description string `json:"description"`
	MaxParts    int    `json:"max_parts,omitempty"`
}

type SplitResponse struct {
	Subtasks []string `json:"subtasks"`
}

type SubtasksBulkRequest struct {
	UserID   string   `json:"user_id"`
	Subtasks []string `json:"subtasks"`
}
