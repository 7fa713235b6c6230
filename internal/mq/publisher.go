package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTaskClaimed   MessageType = "task.claimed"
	MessageTypeTaskCompleted MessageType = "task.completed"
	MessageTypeTaskReclaimed MessageType = "task.reclaimed"
)

// Message — конверт события.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload TaskEvent `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// TaskEvent — payload событий жизненного цикла task.
type TaskEvent struct {
	Seq           int64  `json:"fileseqno"`
	InstanceIndex int    `json:"instance_index"`
	GroupID       int    `json:"group_id"`
	TrancheID     int    `json:"tranche_id"`
	Filename      string `json:"filename,omitempty"`
	Status        string `json:"status"`
	ErrorDesc     string `json:"error_desc,omitempty"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(t MessageType, event TaskEvent) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   event,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в обменник tasks.
func (p *Publisher) Publish(ctx context.Context, msg *Message) error {
	routingKey, err := RoutingKeyFor(msg.Type)
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeTasks),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeTasks, routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
			"fileseqno", msg.Payload.Seq,
		)
		return nil
	})
}

// PublishTaskEvent публикует событие указанного типа.
func (p *Publisher) PublishTaskEvent(ctx context.Context, t MessageType, event TaskEvent) error {
	return p.Publish(ctx, NewMessage(t, event))
}
