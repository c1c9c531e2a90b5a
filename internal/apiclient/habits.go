package apiclient

import (
	"context"
	"net/http"

	"routinedash/internal/model"
)

func (c *Client) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	var resp model.ListResponse[model.Habit]
	if err := c.do(ctx, http.MethodGet, "/habits", userQuery(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) CreateHabit(ctx context.Context, in model.HabitCreate) (model.Habit, error) {
	var habit model.Habit
	err := c.do(ctx, http.MethodPost, "/habits", nil, in, &habit)
	return habit, err
}

// ListHabitLogs GET /v1/habit-logs, optionally for a single habit.
func (c *Client) ListHabitLogs(ctx context.Context, userID, habitID string) ([]model.HabitLog, error) {
	q := userQuery(userID)
	if habitID != "" {
		q.Set("habit_id", habitID)
	}
	var resp model.ListResponse[model.HabitLog]
	if err := c.do(ctx, http.MethodGet, "/habit-logs", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) CreateHabitLog(ctx context.Context, in model.HabitLogCreate) (model.HabitLog, error) {
	var log model.HabitLog
	err := c.do(ctx, http.MethodPost, "/habit-logs", nil, in.WithDefaults(), &log)
	return log, err
}
