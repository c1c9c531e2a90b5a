package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"routinedash/internal/model"
)

// Dashboard GET /api/dashboard
func (c *Client) Dashboard(ctx context.Context) (model.DashboardState, error) {
	var state model.DashboardState
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, nil, &state)
	return state, err
}

// ToggleChecklist PATCH /api/tasks/{id}; the backend answers with the whole aggregate.
func (c *Client) ToggleChecklist(ctx context.Context, taskID string, completed bool) (model.DashboardState, error) {
	var state model.DashboardState
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(taskID), nil, model.DashboardTaskUpdate{Completed: completed}, &state)
	return state, err
}

// UpdateHabit PATCH /api/habits/{id}
func (c *Client) UpdateHabit(ctx context.Context, habitID string, update model.DashboardHabitUpdate) (model.DashboardState, error) {
	var state model.DashboardState
	err := c.do(ctx, http.MethodPatch, "/api/habits/"+url.PathEscape(habitID), nil, update, &state)
	return state, err
}
