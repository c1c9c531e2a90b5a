package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName 所有 dashboard 消息共用的 topic exchange
	ExchangeName = "dashboard.events"

	// RoutingKeyDashboardEvent 后端推送 task_updated / habit_updated 的 routing key
	RoutingKeyDashboardEvent = "dashboard.event"

	// RoutingKeyMutationCommitted 已提交的乐观修改，由 journal dispatcher 发布
	RoutingKeyMutationCommitted = "dashboard.mutation.committed"

	heartbeat = 10 * time.Second
)

// Connection roles, shown as the connection name in the broker UI.
const (
	RolePublisher = "journal-publisher"
	RoleConsumer  = "realtime-consumer"
)

// NewConnection dials the broker and tags the connection with role.
func NewConnection(url, role string) (*amqp091.Connection, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName("routinedash-" + role)

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq as %s: %w", role, err)
	}
	return conn, nil
}

// openChannel dials, opens a channel and declares the events exchange. On any
// failure everything opened so far is closed again.
func openChannel(url, role string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := NewConnection(url, role)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open %s channel: %w", role, err)
	}
	if err := DeclareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare %s: %w", ExchangeName, err)
	}
	return conn, ch, nil
}

// DeclareExchange declares the durable dashboard topic exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil)
}
