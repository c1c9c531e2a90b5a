package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"routinedash/pkg/trace"
)

// Publisher 由 mq.Publisher 实现
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Store is the part of Repository the dispatcher needs.
type Store interface {
	GetUnpublished(ctx context.Context, limit int) ([]*Entry, error)
	MarkAsSent(ctx context.Context, id string) error
	MarkAsFailed(ctx context.Context, id string, maxRetries int) error
}

// Dispatcher 扫描已提交的修改并发布到 MQ
type Dispatcher struct {
	repo       Store
	publisher  Publisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(repo Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
		interval:   1 * time.Second,
		batchSize:  100,
	}
}

// With* 忽略非正数，保留默认值
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	if maxRetries > 0 {
		d.maxRetries = maxRetries
	}
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

// Start blocks until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting journal dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Journal dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce publishes one batch and returns how many entries were sent.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	entries, err := d.repo.GetUnpublished(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get unpublished entries", zap.Error(err))
		return 0
	}
	if len(entries) == 0 {
		return 0
	}

	d.logger.Debug("Dispatching journal entries", zap.Int("count", len(entries)))

	sent := 0
	for _, e := range entries {
		msg := e.Message()
		pubCtx := ctx
		if msg.TraceID != "" {
			pubCtx = trace.WithContext(ctx, msg.TraceID)
		}

		if err := d.publisher.Publish(pubCtx, e.RoutingKey, msg); err != nil {
			d.logger.Error("Failed to publish journal entry",
				zap.String("entry_id", e.ID),
				zap.String("routing_key", e.RoutingKey),
				zap.Error(err),
			)
			if err := d.repo.MarkAsFailed(ctx, e.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark entry as failed",
					zap.String("entry_id", e.ID),
					zap.Error(err),
				)
			}
			continue
		}

		if err := d.repo.MarkAsSent(ctx, e.ID); err != nil {
			d.logger.Error("Failed to mark entry as sent",
				zap.String("entry_id", e.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}
