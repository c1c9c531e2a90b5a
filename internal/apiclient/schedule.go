package apiclient

import (
	"context"
	"net/http"

	"routinedash/internal/model"
)

func (c *Client) ListScheduleEvents(ctx context.Context, userID string) ([]model.ScheduleEvent, error) {
	var resp model.ListResponse[model.ScheduleEvent]
	if err := c.do(ctx, http.MethodGet, "/schedule-events", userQuery(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) BulkCreateScheduleEvents(ctx context.Context, req model.BulkScheduleRequest) (model.BulkScheduleResponse, error) {
	var resp model.BulkScheduleResponse
	err := c.do(ctx, http.MethodPost, "/schedule-events/bulk", nil, req, &resp)
	return resp, err
}

// PlanSchedule POST /v1/scheduler/plan；排程逻辑完全在服务端
func (c *Client) PlanSchedule(ctx context.Context, req model.PlanRequest) (model.PlanResponse, error) {
	var resp model.PlanResponse
	err := c.do(ctx, http.MethodPost, "/scheduler/plan", nil, req, &resp)
	return resp, err
}
