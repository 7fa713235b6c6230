package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeTasks — обменник событий tasks.
const ExchangeTasks Exchange = "tranche.tasks"

// QueueTaskEvents — durable очередь всех событий tasks.
const QueueTaskEvents Queue = "tasks.events"

// Routing keys.
const (
	RoutingKeyClaimed   RoutingKey = "claimed"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyReclaimed RoutingKey = "reclaimed"
)

// AllRoutingKeys — все ключи событий tasks.
var AllRoutingKeys = []RoutingKey{
	RoutingKeyClaimed,
	RoutingKeyCompleted,
	RoutingKeyReclaimed,
}

// SetupTopology объявляет обменник и durable очередь событий.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchange(ch); err != nil {
			return err
		}

		_, err := ch.QueueDeclare(
			string(QueueTaskEvents), // name
			true,                    // durable
			false,                   // delete when unused
			false,                   // exclusive
			false,                   // no-wait
			nil,                     // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueTaskEvents, err)
		}

		return bindQueue(ch, QueueTaskEvents, AllRoutingKeys)
	})
}

// declareExchange создаёт обменник tasks.
func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeTasks), // name
		"direct",              // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeTasks, err)
	}
	return nil
}

// bindQueue привязывает очередь к обменнику tasks по ключам.
func bindQueue(ch *amqp.Channel, queue Queue, keys []RoutingKey) error {
	for _, key := range keys {
		err := ch.QueueBind(
			string(queue),         // queue name
			string(key),           // routing key
			string(ExchangeTasks), // exchange
			false,                 // no-wait
			nil,                   // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s/%s: %w", queue, ExchangeTasks, key, err)
		}
	}
	return nil
}

// RoutingKeyFor возвращает routing key для типа сообщения.
func RoutingKeyFor(t MessageType) (RoutingKey, error) {
	switch t {
	case MessageTypeTaskClaimed:
		return RoutingKeyClaimed, nil
	case MessageTypeTaskCompleted:
		return RoutingKeyCompleted, nil
	case MessageTypeTaskReclaimed:
		return RoutingKeyReclaimed, nil
	default:
		return "", fmt.Errorf("unknown message type %q", t)
	}
}
