package model

type RoutineCategory string

const (
	CategoryFocus         RoutineCategory = "focus"
	CategoryWellness      RoutineCategory = "wellness"
	CategoryCollaboration RoutineCategory = "collaboration"
	CategoryPersonal      RoutineCategory = "personal"
)

type RoutineTask struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	ScheduledFor *string         `json:"scheduled_for"`
	Completed    bool            `json:"completed"`
	Category     RoutineCategory `json:"category"`
}

type DashboardHabit struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	GoalPerDay     int    `json:"goal_per_day"`
	CompletedToday int    `json:"completed_today"`
	Streak         int    `json:"streak"`
	WeeklyProgress []int  `json:"weekly_progress"`
}

type DashboardEvent struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Location    string  `json:"location"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	CoverImage  *string `json:"cover_image"`
	ColorScheme string  `json:"color_scheme"`
}

type Challenge struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timeframe string `json:"timeframe"`
	Goal      int    `json:"goal"`
	Current   int    `json:"current"`
	Unit      string `json:"unit"`
}

type LeaderboardEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarColor string `json:"avatar_color"`
	Progress    int    `json:"progress"`
	Streak      int    `json:"streak"`
}

type Reaction struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
	Label string `json:"label"`
	Count int    `json:"count,omitempty"`
}

type Activity struct {
	ID        string     `json:"id"`
	MemberID  string     `json:"member_id"`
	Summary   string     `json:"summary"`
	Timestamp string     `json:"timestamp"`
	Highlight string     `json:"highlight,omitempty"`
	Reactions []Reaction `json:"reactions"`
}

type GroupProgress struct {
	GroupName       string             `json:"group_name"`
	Mission         string             `json:"mission"`
	Challenge       Challenge          `json:"challenge"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	ActivityFeed    []Activity         `json:"activity_feed"`
	ReactionOptions []Reaction         `json:"reaction_options"`
}

type Mood struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

type LogEntry struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	Content       string `json:"content"`
	Source        string `json:"source"`
	RelatedTaskID string `json:"related_task_id,omitempty"`
	Mood          *Mood  `json:"mood,omitempty"`
	Details       string `json:"details,omitempty"`
}

type DailyLog struct {
	Date    string     `json:"date"`
	Focus   string     `json:"focus"`
	Entries []LogEntry `json:"entries"`
}

// DashboardState 是 mock 时代的聚合数据，一次请求返回全部卡片内容
type DashboardState struct {
	User          string           `json:"user"`
	Greeting      string           `json:"greeting"`
	Date          string           `json:"date"`
	Checklist     []RoutineTask    `json:"checklist"`
	Habits        []DashboardHabit `json:"habits"`
	Schedule      []DashboardEvent `json:"schedule"`
	Progress      ProgressSummary  `json:"progress"`
	GroupProgress *GroupProgress   `json:"group_progress,omitempty"`
	DailyLog      *DailyLog        `json:"daily_log,omitempty"`
}

// Clone 深拷贝可变切片，merge 函数在副本上工作
func (s DashboardState) Clone() DashboardState {
	out := s
	out.Checklist = append([]RoutineTask(nil), s.Checklist...)
	out.Habits = make([]DashboardHabit, len(s.Habits))
	for i, h := range s.Habits {
		h.WeeklyProgress = append([]int(nil), h.WeeklyProgress...)
		out.Habits[i] = h
	}
	out.Schedule = append([]DashboardEvent(nil), s.Schedule...)
	return out
}

// DashboardTaskUpdate PATCH /api/tasks/{id}
type DashboardTaskUpdate struct {
	Completed bool `json:"completed"`
}

// DashboardHabitUpdate PATCH /api/habits/{id}
type DashboardHabitUpdate struct {
	CompletedToday int  `json:"completed_today"`
	Streak         *int `json:"streak,omitempty"`
}
