package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/GoArmGo/ModuleHub/internal/config"
	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
)

// Client представляет собой клиент RabbitMQ для очереди задач очистки
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger
}

// NewClient создает и инициализирует новый клиент RabbitMQ
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	client := &Client{logger: logger}

	conn, err := amqp.Dial(cfg.RabbitMQ.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	client.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	client.channel = ch

	// очередь durable: задачи переживают перезапуск брокера
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.RabbitMQQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}
	client.queue = q

	logger.Info("RabbitMQ connected",
		"queue", q.Name,
		"messages", q.Messages,
	)
	return client, nil
}

// Close закрывает соединение и канал RabbitMQ
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishModuleCleanup публикует задачу на удаление файлов модуля.
// Реализует ports.CleanupPublisher.
func (c *Client) PublishModuleCleanup(ctx context.Context, payload payloads.ModuleCleanupPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload to JSON: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}
	c.logger.Info("cleanup job published", "queue", c.queue.Name, "folder", payload.Folder)
	return nil
}

// StartConsumingModuleCleanup начинает потребление задач очистки.
// Реализует ports.CleanupConsumer.
func (c *Client) StartConsumingModuleCleanup(ctx context.Context, handler func(context.Context, payloads.ModuleCleanupPayload) error) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue.Name,
		"",    // consumer
		false, // auto-ack (подтверждаем вручную)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.logger.Info("consumer registered", "queue", c.queue.Name)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("RabbitMQ channel closed, stopping consumer")
					return
				}
				c.settle(msg, process(ctx, msg.Body, msg.Redelivered, handler, c.logger))
			case <-ctx.Done():
				c.logger.Info("context cancelled, stopping RabbitMQ consumer")
				return
			}
		}
	}()

	return nil
}

func (c *Client) settle(msg amqp.Delivery, a action) {
	var err error
	switch a {
	case actionAck:
		err = msg.Ack(false)
	case actionRequeue:
		err = msg.Nack(false, true)
	default:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.logger.Error("failed to settle message", "action", a, "error", err)
	}
}

// action что сделать с сообщением после обработки
type action string

const (
	actionAck     action = "ack"
	actionRequeue action = "requeue"
	actionDrop    action = "drop"
)

// process разбирает сообщение и вызывает handler.
// Неразбираемое сообщение отбрасывается сразу, неудачная обработка
// повторяется один раз: дальше остатки подберёт сверка при старте.
func process(
	ctx context.Context,
	body []byte,
	redelivered bool,
	handler func(context.Context, payloads.ModuleCleanupPayload) error,
	logger *slog.Logger,
) action {
	var payload payloads.ModuleCleanupPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("failed to unmarshal cleanup job", "error", err)
		return actionDrop
	}

	if err := handler(ctx, payload); err != nil {
		if redelivered {
			logger.Error("cleanup job failed again, dropping", "folder", payload.Folder, "error", err)
			return actionDrop
		}
		logger.Warn("cleanup job failed, requeueing", "folder", payload.Folder, "error", err)
		return actionRequeue
	}
	return actionAck
}
