package progress

import (
	"time"

	"routinedash/internal/model"
)

// WeeklyRepetitions returns completed repetitions for the last seven days,
// oldest first, ending today.
func WeeklyRepetitions(logs []model.HabitLog, now time.Time) []int {
	buckets := make([]int, 7)
	today := Day(now)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		index[today.AddDate(0, 0, i-6).Format(dayLayout)] = i
	}
	for _, l := range logs {
		if l.Date.IsZero() || l.Status != model.HabitStatusCompleted {
			continue
		}
		if i, ok := index[l.Date.In(now.Location()).Format(dayLayout)]; ok {
			buckets[i] += l.CompletedRepetitions
		}
	}
	return buckets
}

// DayColumns 看板中一天的四列
type DayColumns struct {
	Date   string       `json:"date"`
	High   []model.Task `json:"high"`
	Medium []model.Task `json:"medium"`
	Low    []model.Task `json:"low"`
	Done   []model.Task `json:"done"`
}

// WeekBoard groups the tasks due this week (Sunday through Saturday) by day.
// Tasks without a due date land on today.
func WeekBoard(tasks []model.Task, now time.Time) []DayColumns {
	today := Day(now)
	start := today.AddDate(0, 0, -int(today.Weekday()))

	board := make([]DayColumns, 7)
	index := make(map[string]int, 7)
	for i := range board {
		date := start.AddDate(0, 0, i).Format(dayLayout)
		board[i] = DayColumns{Date: date, High: []model.Task{}, Medium: []model.Task{}, Low: []model.Task{}, Done: []model.Task{}}
		index[date] = i
	}

	for _, t := range tasks {
		at := today
		if t.DueDate != nil && !t.DueDate.IsZero() {
			at = Day(t.DueDate.In(now.Location()))
		}
		i, ok := index[at.Format(dayLayout)]
		if !ok {
			continue
		}
		col := &board[i]
		switch {
		case t.IsCompleted:
			col.Done = append(col.Done, t)
		case t.Priority.OrDefault() == model.PriorityHigh:
			col.High = append(col.High, t)
		case t.Priority.OrDefault() == model.PriorityLow:
			col.Low = append(col.Low, t)
		default:
			col.Medium = append(col.Medium, t)
		}
	}
	return board
}
