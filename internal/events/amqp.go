package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/yukikurage/synergy-api/internal/metrics"
	"go.uber.org/zap"
)

const (
	ExchangeName      = "synergy.events"
	NotificationQueue = "synergy.notifications"
	notificationKeys  = "notification.*"

	minRedialDelay = 500 * time.Millisecond
	maxRedialDelay = 30 * time.Second
)

func dial(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return conn, ch, nil
}

// redialDelay is the wait before reconnect attempt n (0-based): doubling from
// minRedialDelay, capped at maxRedialDelay.
func redialDelay(attempt int) time.Duration {
	delay := minRedialDelay
	for i := 0; i < attempt && delay < maxRedialDelay; i++ {
		delay *= 2
	}
	if delay > maxRedialDelay {
		delay = maxRedialDelay
	}
	return delay
}

// AMQPPublisher publishes events to a topic exchange so that fan-out can run
// in any instance of the service. A dropped connection is redialed on the
// next publish.
type AMQPPublisher struct {
	url     string
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
}

func NewAMQPPublisher(url string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{
		url:     url,
		conn:    conn,
		channel: ch,
		logger:  logger,
		timeout: 5 * time.Second,
	}, nil
}

// IsConnected reports whether the publisher currently holds a live channel.
func (p *AMQPPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectedLocked()
}

func (p *AMQPPublisher) connectedLocked() bool {
	return p.conn != nil && p.channel != nil && !p.conn.IsClosed() && !p.channel.IsClosed()
}

func (p *AMQPPublisher) redialLocked() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.channel = nil, nil

	conn, ch, err := dial(p.url)
	if err != nil {
		return err
	}
	p.conn, p.channel = conn, ch
	p.logger.Info("Publisher reconnected", zap.String("exchange", ExchangeName))
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("Failed to encode event", zap.String("event_id", e.ID), zap.Error(err))
		metrics.IncNotificationDropped("publish_error")
		return
	}

	// Detached from the request so a finished request does not cancel delivery.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	p.mu.Lock()
	if !p.connectedLocked() {
		err = p.redialLocked()
	}
	if err == nil {
		err = p.channel.PublishWithContext(pubCtx, ExchangeName, e.RoutingKey(), false, false, amqp091.Publishing{
			ContentType:  "application/json",
			MessageId:    e.ID,
			Timestamp:    e.OccurredAt,
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		})
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("Failed to publish event",
			zap.String("event_id", e.ID),
			zap.String("routing_key", e.RoutingKey()),
			zap.Error(err),
		)
		metrics.IncNotificationDropped("publish_error")
	}
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// AMQPConsumer feeds notification events from the broker into a Handler.
// Every delivery is acked or dropped exactly once; failed handling is logged
// and not requeued. A lost connection is redialed with backoff until the
// consumer is closed.
type AMQPConsumer struct {
	url       string
	handler   Handler
	deduper   Deduper
	logger    *zap.Logger
	timeout   time.Duration
	connected atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   amqp091.Queue
}

func NewAMQPConsumer(url string, handler Handler, deduper Deduper, logger *zap.Logger) (*AMQPConsumer, error) {
	c := &AMQPConsumer{
		url:     url,
		handler: handler,
		deduper: deduper,
		logger:  logger,
		timeout: 5 * time.Second,
		closed:  make(chan struct{}),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}

	logger.Info("Consumer initialized",
		zap.String("queue", c.queue.Name),
		zap.String("exchange", ExchangeName),
	)
	return c, nil
}

func (c *AMQPConsumer) connect() error {
	conn, ch, err := dial(c.url)
	if err != nil {
		return err
	}

	q, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, notificationKeys, ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel, c.queue = conn, ch, q
	c.mu.Unlock()
	c.connected.Store(true)
	return nil
}

// IsConnected reports whether the consumer is attached to the broker.
func (c *AMQPConsumer) IsConnected() bool {
	return c.connected.Load()
}

// Run consumes until ctx is cancelled or Close is called, redialing whenever
// the broker connection drops. It blocks and should be called in a goroutine.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		c.connected.Store(false)

		if ctx.Err() != nil || c.isClosed() {
			return nil
		}
		c.logger.Warn("Consumer lost broker connection", zap.Error(err))

		for attempt := 0; ; attempt++ {
			select {
			case <-ctx.Done():
				return nil
			case <-c.closed:
				return nil
			case <-time.After(redialDelay(attempt)):
			}

			if err := c.connect(); err != nil {
				c.logger.Warn("Consumer redial failed", zap.Int("attempt", attempt+1), zap.Error(err))
				continue
			}
			c.logger.Info("Consumer reconnected", zap.String("queue", NotificationQueue))
			break
		}
	}
}

// consume processes deliveries on the current channel until it closes.
func (c *AMQPConsumer) consume(ctx context.Context) error {
	c.mu.Lock()
	ch, queue := c.channel, c.queue.Name
	c.mu.Unlock()

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return amqp091.ErrClosed
			}
			c.process(ctx, msg)
		}
	}
}

func (c *AMQPConsumer) process(ctx context.Context, msg amqp091.Delivery) {
	var e Event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		c.logger.Error("Discarding malformed event", zap.Error(err))
		metrics.IncNotificationDropped("handler_error")
		_ = msg.Nack(false, false)
		return
	}

	if c.deduper != nil && !c.deduper.AcquireOnce(ctx, e.ID) {
		metrics.IncNotificationDropped("duplicate")
		_ = msg.Ack(false)
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.handler(handleCtx, e); err != nil {
		c.logger.Warn("Dropping event",
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
		metrics.IncNotificationDropped("handler_error")
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

func (c *AMQPConsumer) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *AMQPConsumer) Close() {
	c.closeOnce.Do(func() { close(c.closed) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connected.Store(false)
}
