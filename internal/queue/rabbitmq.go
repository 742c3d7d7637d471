// Package queue backs C5's single-worker serialization with a RabbitMQ
// queue: the HTTP handler for POST/PUT /jobs publishes a work request and
// blocks on a per-request completion channel (registered before publish)
// until the pipeline finishes it, while exactly one consumer (prefetch=1)
// drains the queue. This keeps the submitted-jobs-run-one-at-a-time
// requirement of spec.md §5 genuine rather than simulated, without
// breaking the synchronous-response Non-goal: the queue is an internal
// serialization device, nothing is streamed back to the HTTP caller. The
// message payload itself (a judge.WorkRequest) is opaque to this package.
package queue

import (
	"context"
	"fmt"
	"time"

	"onlinejudge/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	config  config.RabbitMQConfig
}

func NewClient(cfg config.RabbitMQConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("queue: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: open channel: %w", err)
	}

	if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: set qos: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: declare %s: %w", cfg.QueueName, err)
	}

	return &Client{conn: conn, channel: ch, queue: q, config: cfg}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// PublishJob enqueues a pre-encoded work request for the single judge
// worker to pick up.
func (c *Client) PublishJob(ctx context.Context, body []byte) error {
	err := c.channel.PublishWithContext(ctx, "", c.queue.Name, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("queue: publish: %w", err)
	}
	return nil
}

// Consume registers the single judge worker as this queue's only consumer.
// Qos(prefetch=1) at construction time guarantees it receives jobs one at a
// time.
func (c *Client) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.ConsumeWithContext(ctx, c.queue.Name, "judge-worker", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: consume: %w", err)
	}
	return msgs, nil
}

func (c *Client) Ack(msg amqp.Delivery) error  { return msg.Ack(false) }
func (c *Client) Nack(msg amqp.Delivery) error { return msg.Nack(false, false) }

func (c *Client) IsHealthy() bool {
	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed()
}

// QueueDepth reports the number of messages currently waiting. Nothing in
// this module feeds it into the judge_queue_depth gauge.
func (c *Client) QueueDepth() (int, error) {
	q, err := c.channel.QueueInspect(c.queue.Name)
	if err != nil {
		return 0, fmt.Errorf("queue: inspect: %w", err)
	}
	return q.Messages, nil
}
