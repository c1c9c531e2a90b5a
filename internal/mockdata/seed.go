package mockdata

import (
	"time"

	"routinedash/internal/model"
	"routinedash/internal/progress"
)

const DefaultUser = "wendy"

func strPtr(s string) *string { return &s }

// Seed returns the demo aggregate dated on now.
func Seed(now time.Time) model.DashboardState {
	day := progress.Day(now)
	at := func(offsetDays, hour, minute int) string {
		return day.AddDate(0, 0, offsetDays).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).Format("2006-01-02T15:04:05")
	}

	reactions := []model.Reaction{
		{ID: "cheer", Emoji: "🎉", Label: "Cheer"},
		{ID: "power", Emoji: "💪", Label: "Power Up"},
		{ID: "spark", Emoji: "⚡", Label: "Spark"},
	}
	radiant := &model.Mood{ID: "radiant", Label: "Radiant", Emoji: "🌞"}
	steady := &model.Mood{ID: "steady", Label: "Steady", Emoji: "🌤️"}
	reflective := &model.Mood{ID: "reflective", Label: "Reflective", Emoji: "🌙"}

	state := model.DashboardState{
		User:     "Wendy",
		Greeting: "Have a good day, Wendy",
		Date:     at(0, 8, 0),
		Checklist: []model.RoutineTask{
			{ID: "task-morning-walk", Title: "Morning walk by the lake", ScheduledFor: strPtr("06:30 AM"), Category: model.CategoryWellness},
			{ID: "task-deep-work", Title: "Deep work: Product strategy", ScheduledFor: strPtr("09:00 AM"), Category: model.CategoryFocus},
			{ID: "task-design-review", Title: "Design review with Fitplan team", ScheduledFor: strPtr("11:30 AM"), Category: model.CategoryCollaboration},
			{ID: "task-evening-yoga", Title: "Sunset yoga flow", ScheduledFor: strPtr("07:00 PM"), Category: model.CategoryWellness},
		},
		Habits: []model.DashboardHabit{
			{ID: "habit-water", Title: "Drink water", GoalPerDay: 8, CompletedToday: 5, Streak: 7, WeeklyProgress: []int{8, 8, 7, 6, 8, 5, 5}},
			{ID: "habit-reading", Title: "Read 15 minutes", GoalPerDay: 1, CompletedToday: 0, Streak: 3, WeeklyProgress: []int{1, 1, 1, 0, 1, 1, 0}},
			{ID: "habit-steps", Title: "10k steps", GoalPerDay: 1, CompletedToday: 0, Streak: 5, WeeklyProgress: []int{1, 1, 1, 1, 1, 0, 0}},
		},
		Schedule: []model.DashboardEvent{
			{ID: "event-trip", Title: "Traveling to Switzerland", Location: "Zurich, Switzerland", StartTime: at(3, 5, 10), EndTime: at(3, 11, 40), CoverImage: strPtr("/images/swiss-lake.svg"), ColorScheme: "orange"},
			{ID: "event-family-camp", Title: "Camping at Ranca Upas", Location: "Bandung, Indonesia", StartTime: at(5, 8, 0), EndTime: at(5, 11, 0), CoverImage: strPtr("/images/ranca-upas.svg"), ColorScheme: "purple"},
			{ID: "event-milo-soccer", Title: "Milo Soccer Practice", Location: "Community Sports Center", StartTime: at(0, 16, 0), EndTime: at(0, 17, 30), CoverImage: strPtr("/images/soccer.svg"), ColorScheme: "teal"},
		},
		GroupProgress: &model.GroupProgress{
			GroupName: "Sunrise Striders",
			Mission:   "Keep the sunrise streak alive with your closest friends.",
			Challenge: model.Challenge{ID: "challenge-sunrise-circuit", Title: "30-Day Sunrise Circuit", Timeframe: "Day 18 of 30", Goal: 30, Current: 18, Unit: "sessions"},
			Leaderboard: []model.LeaderboardEntry{
				{ID: "wendy", Name: "Wendy", AvatarColor: "#F97316", Progress: 18, Streak: 6},
				{ID: "nora", Name: "Nora", AvatarColor: "#FDBA74", Progress: 17, Streak: 8},
				{ID: "theo", Name: "Theo", AvatarColor: "#FBBF24", Progress: 16, Streak: 5},
				{ID: "mira", Name: "Mira", AvatarColor: "#F97316", Progress: 15, Streak: 4},
			},
			ActivityFeed: []model.Activity{
				{ID: "activity-nora-run", MemberID: "nora", Summary: "Nora logged a sunrise trail run along the coastal ridge.", Timestamp: at(0, 7, 10), Highlight: "New personal best pace!",
					Reactions: []model.Reaction{withCount(reactions[0], 4), withCount(reactions[1], 2)}},
				{ID: "activity-theo-playlist", MemberID: "theo", Summary: "Theo shared a 20-minute power-up playlist for tomorrow's circuit.", Timestamp: at(0, 8, 45),
					Reactions: []model.Reaction{withCount(reactions[2], 3)}},
				{ID: "activity-mira-checkin", MemberID: "mira", Summary: "Mira completed a focused breathwork reset before the design sprint.", Timestamp: at(0, 9, 15),
					Reactions: []model.Reaction{withCount(reactions[0], 2), withCount(reactions[2], 1)}},
			},
			ReactionOptions: reactions,
		},
		DailyLog: &model.DailyLog{
			Date:  day.Format("2006-01-02"),
			Focus: "Savor the warm wins and micro-celebrations that light up today.",
			Entries: []model.LogEntry{
				{ID: "log-sunrise-tea", Timestamp: at(0, 6, 15), Content: "Sunrise stretch with jasmine tea on the balcony.", Source: "manual", Mood: radiant,
					Details: "Recorded a quick time-lapse for our shared highlight reel."},
				{ID: "log-deep-work", Timestamp: at(0, 11, 55), Content: "Focused sprint on product strategy. Drafted the launch storyboard.", Source: "manual", Mood: reflective},
				{ID: "log-evening-preview", Timestamp: at(0, 21, 15), Content: "Evening wind-down: sketched tomorrow's dinner table setup.", Source: "manual", Mood: steady},
			},
		},
	}
	state.Progress = progress.FromDashboard(state)
	return state
}

func withCount(r model.Reaction, n int) model.Reaction {
	r.Count = n
	return r
}
