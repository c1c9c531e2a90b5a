package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"routinedash/internal/model"
)

func (c *Client) Suggest(ctx context.Context, req model.AISuggestRequest) (model.AISuggestResponse, error) {
	var resp model.AISuggestResponse
	err := c.do(ctx, http.MethodPost, "/ai/suggest", nil, req, &resp)
	return resp, err
}

func (c *Client) Feedback(ctx context.Context, fb model.AIFeedback) error {
	return c.do(ctx, http.MethodPost, "/ai/feedback", nil, fb, nil)
}

// SplitTask POST /v1/tasks/ai/split
func (c *Client) SplitTask(ctx context.Context, req model.SplitRequest) (model.SplitResponse, error) {
	var resp model.SplitResponse
	err := c.do(ctx, http.MethodPost, "/tasks/ai/split", nil, req, &resp)
	return resp, err
}

func (c *Client) CreateSubtasks(ctx context.Context, taskID string, req model.SubtasksBulkRequest) ([]model.Task, error) {
	var tasks []model.Task
	err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/subtasks/bulk", nil, req, &tasks)
	return tasks, err
}

// ApplyCoach POST /v1/habits/{id}/coach/apply；body 原样透传
func (c *Client) ApplyCoach(ctx context.Context, habitID string, body map[string]any) (model.Habit, error) {
	var habit model.Habit
	err := c.do(ctx, http.MethodPost, "/habits/"+url.PathEscape(habitID)+"/coach/apply", nil, body, &habit)
	return habit, err
}
