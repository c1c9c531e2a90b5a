package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 后端 REST 调用延迟（毫秒）
	BackendCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_backend_call_latency_ms",
			Help:    "Backend REST call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"endpoint", "status"},
	)

	// 乐观更新结果
	MutationOutcome = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_mutation_total",
			Help: "Optimistic mutations by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: committed, rolled_back
	)

	// 实时事件
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_realtime_events_total",
			Help: "Realtime events received by source and type",
		},
		[]string{"source", "type"},
	)

	RealtimeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_realtime_reconnects_total",
			Help: "Realtime channel reconnect attempts",
		},
	)

	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_circuit_state",
			Help: "Backend circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

func RecordBackendCallLatency(endpoint, status string, duration time.Duration) {
	BackendCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

func IncrementMutation(kind, outcome string) {
	MutationOutcome.WithLabelValues(kind, outcome).Inc()
}

func IncrementRealtimeEvent(source, eventType string) {
	RealtimeEvents.WithLabelValues(source, eventType).Inc()
}

func IncrementReconnect() {
	RealtimeReconnects.Inc()
}

func SetCircuitState(name string, state int) {
	CircuitState.WithLabelValues(name).Set(float64(state))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
