// Package trace carries the request trace id from the HTTP edge through the
// mutation journal and onto MQ messages.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
)

type ctxKey struct{}

const (
	headerName = "X-Trace-ID"
	// 部分网关只带 X-Request-ID
	requestIDHeader = "X-Request-ID"

	maxIDLen = 64
)

// GenerateTraceID 生成 32 位 hex，与 OTel trace id 同长
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromHeaders picks the inbound id from X-Trace-ID, then X-Request-ID.
// Values that are too long or carry characters outside [A-Za-z0-9._-] are
// dropped so they never reach logs or the journal.
func FromHeaders(get func(string) string) string {
	for _, name := range []string{headerName, requestIDHeader} {
		if id := strings.TrimSpace(get(name)); acceptable(id) {
			return id
		}
	}
	return ""
}

// Ensure returns ctx unchanged when it already carries a trace id, otherwise attaches a new one.
func Ensure(ctx context.Context) context.Context {
	if FromContext(ctx) != "" {
		return ctx
	}
	return WithContext(ctx, GenerateTraceID())
}

func HeaderName() string {
	return headerName
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
