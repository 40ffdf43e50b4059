// Package amqp publishes and consumes fintrack messages over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/core"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var (
	ErrCircuitOpen    = errors.New("circuit breaker is open")
	errDeliveryClosed = errors.New("delivery channel closed: connection closed")
)

type Config struct {
	URL         string
	Exchange    string
	EventsQueue string
	AlertsQueue string
}

// Client owns one connection and channel. Both are re-established after a
// connection loss; publishing is guarded by a circuit breaker.
type Client struct {
	url          string
	exchangeName string
	eventsQueue  string
	alertsQueue  string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		eventsQueue:  cfg.EventsQueue,
		alertsQueue:  cfg.AlertsQueue,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(channel, c.exchangeName, c.eventsQueue, c.alertsQueue); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.conn, c.channel = conn, channel
	return nil
}

// declareTopology creates the direct exchange and binds each queue under a
// routing key equal to its name.
func declareTopology(ch *amqp091.Channel, exchange string, queues ...string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for _, q := range queues {
		if q == "" {
			continue
		}
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

// activeChannel returns a usable channel, reconnecting if the previous
// connection is gone.
func (c *Client) activeChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		if c.channel != nil {
			c.channel.Close()
		}
		if c.conn != nil {
			c.conn.Close()
		}
		c.conn, c.channel = nil, nil
		if err := c.connectLocked(); err != nil {
			return nil, err
		}
	}
	return c.channel, nil
}

// PublishTransactionEvent sends a TransactionEventMessage for tx.
func (c *Client) PublishTransactionEvent(ctx context.Context, tx core.Transaction) error {
	msg := NewTransactionEventMessage(tx)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.eventsQueue, msg.MessageID, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transaction event",
		"id", tx.ID,
		"user_id", tx.UserID,
		"exchange", c.exchangeName,
		"queue", c.eventsQueue)
	return nil
}

// PublishBudgetAlert sends msg to the alerts queue.
func (c *Client) PublishBudgetAlert(ctx context.Context, msg *BudgetAlertMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.alertsQueue, msg.MessageID, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published budget alert",
		"user_id", msg.UserID,
		"category_id", msg.CategoryID,
		"status", msg.Status,
		"queue", c.alertsQueue)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: %w", routingKey, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := c.activeChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish to %s: %w", routingKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		c.exchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// ConsumeTransactionEvents delivers events to handler until ctx is done.
// Lost connections are retried with exponential backoff. Messages that fail
// to decode are dropped; handler errors requeue the message.
func (c *Client) ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *TransactionEventMessage) error) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting",
			"error", err,
			"attempt", attempt,
			"backoff", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if _, err := c.activeChannel(); err != nil {
			slog.ErrorContext(ctx, "AMQP reconnect failed", "error", err)
			continue
		}
		attempt = 0
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *TransactionEventMessage) error) error {
	ch, err := c.activeChannel()
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(c.eventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction events", "queue", c.eventsQueue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveryClosed
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

func handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler func(context.Context, *TransactionEventMessage) error) {
	msg, err := TransactionEventMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"id", msg.ID,
			"message_id", msg.MessageID)
		delivery.Nack(false, !delivery.Redelivered)
		return
	}
	delivery.Ack(false)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// isCircuitOpen reports whether publishing is blocked. An open circuit turns
// half-open once openTimeout has passed since the last failure.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff doubles from one second, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errDeliveryClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
