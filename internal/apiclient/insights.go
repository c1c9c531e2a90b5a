package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"routinedash/internal/model"
)

// DailyInsight GET /v1/insights/daily; empty date means today, force skips the backend cache.
func (c *Client) DailyInsight(ctx context.Context, userID, date string, force bool) (model.DailyInsight, error) {
	q := insightQuery(userID, "date", date, force)
	var resp model.DailyInsight
	err := c.do(ctx, http.MethodGet, "/insights/daily", q, nil, &resp)
	return resp, err
}

func (c *Client) MonthlyInsight(ctx context.Context, userID, month string, force bool) (model.MonthlyInsight, error) {
	q := insightQuery(userID, "month", month, force)
	var resp model.MonthlyInsight
	err := c.do(ctx, http.MethodGet, "/insights/monthly", q, nil, &resp)
	return resp, err
}

// Summary GET /v1/summary
func (c *Client) Summary(ctx context.Context, userID string) (model.Summary, error) {
	var resp model.Summary
	err := c.do(ctx, http.MethodGet, "/summary", userQuery(userID), nil, &resp)
	return resp, err
}

func insightQuery(userID, key, value string, force bool) url.Values {
	q := userQuery(userID)
	if value != "" {
		q.Set(key, value)
	}
	if force {
		q.Set("force", "true")
	}
	return q
}
