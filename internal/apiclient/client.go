package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"routinedash/pkg/circuitbreaker"
	"routinedash/pkg/metrics"
	"routinedash/pkg/otel"
	"routinedash/pkg/trace"
)

const (
	apiPrefix      = "/v1"
	legacyPrefix   = "/api/"
	defaultBaseURL = "http://localhost:8000"
)

// APIError 后端返回的非 2xx 响应
type APIError struct {
	Status   int
	Detail   string
	Endpoint string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend %s: HTTP %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("backend %s: HTTP %d: %s", e.Endpoint, e.Status, e.Detail)
}

func (e *APIError) StatusCode() int { return e.Status }

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	token      string
	logger     *zap.Logger
}

type Option func(*Client)

// WithBreaker 所有后端调用都经过该熔断器
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    NormalizeBaseURL(baseURL),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// NormalizeBaseURL trims trailing slashes and a trailing /v1; the prefix is
// added per request instead.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return defaultBaseURL
	}
	if strings.HasSuffix(trimmed, apiPrefix) {
		if without := strings.TrimRight(strings.TrimSuffix(trimmed, apiPrefix), "/"); without != "" {
			return without
		}
	}
	return trimmed
}

// ResolvePath prefixes relative paths with /v1 unless they already carry it.
// Legacy /api/ paths are sent as is.
func ResolvePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == apiPrefix || strings.HasPrefix(path, apiPrefix+"/") || strings.HasPrefix(path, legacyPrefix) {
		return path
	}
	return apiPrefix + path
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + ResolvePath(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do 发送请求并把 JSON 响应解码到 out；out 为 nil 时丢弃响应体
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	call := func(ctx context.Context) error {
		return c.roundTrip(ctx, method, path, query, body, out)
	}
	if c.breaker == nil {
		return call(ctx)
	}
	return c.breaker.ExecuteCtx(ctx, call)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName(), traceID)
	}

	endpoint := method + " " + routeLabel(path)
	ctx, span := otel.ClientSpan(ctx, req, endpoint)
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordBackendCallLatency(endpoint, "error", time.Since(start))
		otel.EndClientSpan(span, 0, err)
		c.logger.Warn("Backend call failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()
	metrics.RecordBackendCallLatency(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Endpoint: endpoint, Detail: readDetail(resp.Body)}
		otel.EndClientSpan(span, resp.StatusCode, apiErr)
		c.logger.Warn("Backend returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			otel.EndClientSpan(span, resp.StatusCode, err)
			return fmt.Errorf("decode %s: %w", endpoint, err)
		}
	}
	otel.EndClientSpan(span, resp.StatusCode, nil)
	return nil
}

// readDetail pulls a message out of {"detail": ...} or {"error": ...}
// bodies, falling back to the raw text.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if len(body.Detail) > 0 {
			var s string
			if json.Unmarshal(body.Detail, &s) == nil {
				return s
			}
			return string(body.Detail)
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// routeLabel 把路径中的 id 段替换掉，避免指标基数爆炸
func routeLabel(path string) string {
	parts := strings.Split(strings.Trim(ResolvePath(path), "/"), "/")
	for i, p := range parts {
		if i == 0 {
			continue
		}
		switch parts[i-1] {
		case "tasks", "habits", "users", "schedule-events":
			if !isStaticSegment(p) {
				parts[i] = ":id"
			}
		}
	}
	return "/" + strings.Join(parts, "/")
}

func isStaticSegment(s string) bool {
	switch s {
	case "replan", "ai", "bulk", "coach", "subtasks":
		return true
	}
	return false
}

func userQuery(userID string) url.Values {
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	return q
}
