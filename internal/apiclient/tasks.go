package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"routinedash/internal/model"
)

// ListTasks GET /v1/tasks；completed 为 nil 时不过滤
func (c *Client) ListTasks(ctx context.Context, userID string, completed *bool) ([]model.Task, error) {
	q := userQuery(userID)
	if completed != nil {
		q.Set("is_completed", strconv.FormatBool(*completed))
	}
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, in model.TaskCreate) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &task)
	return task, err
}

// SetTaskCompleted PATCH /v1/tasks/{id}?is_completed=
func (c *Client) SetTaskCompleted(ctx context.Context, taskID string, completed bool) (model.Task, error) {
	q := url.Values{}
	q.Set("is_completed", strconv.FormatBool(completed))
	var task model.Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID), q, nil, &task)
	return task, err
}

// UpdateTask PATCH /v1/tasks/{id} with a JSON body.
func (c *Client) UpdateTask(ctx context.Context, taskID string, patch model.TaskPatch) (model.Task, error) {
	body := map[string]any{}
	if patch.IsCompleted != nil {
		body["is_completed"] = *patch.IsCompleted
	}
	if patch.Priority != nil {
		body["priority"] = *patch.Priority
	}
	if patch.ClearDueDate {
		body["due_date"] = nil
	} else if patch.DueDate != nil {
		body["due_date"] = *patch.DueDate
	}
	var task model.Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID), nil, body, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskID), nil, nil, nil)
}

// ReplanTasks POST /v1/tasks/replan；DryRun 只返回提案
func (c *Client) ReplanTasks(ctx context.Context, req model.ReplanRequest) (model.ReplanResponse, error) {
	var resp model.ReplanResponse
	err := c.do(ctx, http.MethodPost, "/tasks/replan", nil, req, &resp)
	return resp, err
}
