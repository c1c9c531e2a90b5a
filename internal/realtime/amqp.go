package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"routinedash/pkg/mq"
)

// Consumer is the part of mq.Consumer the source needs.
type Consumer interface {
	SetHandler(h mq.MessageHandler)
	StartConsuming(ctx context.Context) error
}

// AMQPSource feeds dashboard events from the events exchange into the merger.
type AMQPSource struct {
	consumer Consumer
	merger   *Merger
	logger   *zap.Logger
}

func NewAMQPSource(consumer Consumer, merger *Merger, logger *zap.Logger) *AMQPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AMQPSource{consumer: consumer, merger: merger, logger: logger}
	consumer.SetHandler(s.Handle)
	return s
}

// Handle 解析失败的消息标记为 poison，进入 DLQ 而不是反复重试
func (s *AMQPSource) Handle(ctx context.Context, data json.RawMessage) error {
	_, err := s.merger.HandleRaw(ctx, "amqp", "", data)
	if errors.Is(err, ErrMalformed) {
		return fmt.Errorf("%w: %v", mq.ErrPoison, err)
	}
	return err
}

// Start blocks until ctx is done.
func (s *AMQPSource) Start(ctx context.Context) error {
	s.logger.Info("Starting AMQP realtime source", zap.String("routing_key", mq.RoutingKeyDashboardEvent))
	return s.consumer.StartConsuming(ctx)
}
