package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"resumerag/internal/config"
	"resumerag/internal/errors"
)

// Handler processes one delivery body.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

// Connect dials the broker named by cfg.URL.
func Connect(cfg config.QueueConfig) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to dial broker", err)
	}
	return conn, nil
}

// Publisher sends status updates to the topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
}

// NewPublisher declares the durable topic exchange updates go to.
func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to open channel", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to declare exchange", err).
			WithContext("exchange", exchange)
	}
	return &Publisher{conn: conn, exchange: exchange}, nil
}

// PublishUpdate publishes update under job.<id>. A channel is opened per
// message because amqp channels are not safe for concurrent publishing.
func (p *Publisher) PublishUpdate(_ context.Context, update StatusUpdate) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to open channel", err)
	}
	defer ch.Close()

	body, err := json.Marshal(update)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeQueueFailed, "failed to encode update", err)
	}

	return ch.Publish(
		p.exchange,
		RoutingKey(update.JobID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Consumer runs a fixed pool of workers, each with its own channel on the
// shared connection.
type Consumer struct {
	conn    *amqp.Connection
	cfg     config.QueueConfig
	handler Handler
	logger  *errors.Logger
}

// NewConsumer creates a Consumer for cfg.JobQueue.
func NewConsumer(conn *amqp.Connection, cfg config.QueueConfig, handler Handler, logger *errors.Logger) *Consumer {
	return &Consumer{conn: conn, cfg: cfg, handler: handler, logger: logger}
}

// Run blocks until ctx is cancelled or every worker's delivery channel
// closes. It returns the first setup error, if any.
func (c *Consumer) Run(ctx context.Context) error {
	workers := max(c.cfg.Workers, 1)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wg.Add(workers)
	for i := range workers {
		go func(id int) {
			defer wg.Done()
			if err := c.worker(ctx, id); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(i + 1)
	}
	wg.Wait()
	return firstErr
}

func (c *Consumer) worker(ctx context.Context, id int) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to open channel", err)
	}
	defer ch.Close()

	if err := ch.Qos(max(c.cfg.Prefetch, 1), 0, false); err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to set prefetch", err)
	}

	if _, err := ch.QueueDeclare(
		c.cfg.JobQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to declare queue", err).
			WithContext("queue", c.cfg.JobQueue)
	}

	msgs, err := ch.Consume(
		c.cfg.JobQueue,
		fmt.Sprintf("resumerag-worker-%d", id),
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to consume queue", err).
			WithContext("queue", c.cfg.JobQueue)
	}

	c.logger.Info("Worker started", "worker_id", id, "queue", c.cfg.JobQueue)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Worker stopping", "worker_id", id)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Delivery channel closed", "worker_id", id)
				return nil
			}
			c.settle(ctx, id, msg, msg.Body)
		}
	}
}

// acknowledger is the settlement half of amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle handles one delivery. Job failures are reported on the update
// exchange and acked, since redelivering the same body would fail the same
// way. A delivery interrupted by shutdown is requeued for another worker.
func (c *Consumer) settle(ctx context.Context, id int, d acknowledger, body []byte) {
	_ = c.handler.Handle(ctx, body)

	if ctx.Err() != nil {
		if err := d.Nack(false, true); err != nil {
			c.logger.Warn("Failed to requeue delivery", "worker_id", id, "error", err.Error())
		}
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.Warn("Failed to ack delivery", "worker_id", id, "error", err.Error())
	}
}
