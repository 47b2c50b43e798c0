package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/utils"
)

var (
	// ErrBrokerUnavailable is returned when the broker cannot be reached
	// within the full connect window.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrClosed is returned by operations on a broker after Close.
	ErrClosed = errors.New("broker closed")
)

const (
	defaultConnectAttempts = 12
	defaultConnectDelay    = 5 * time.Second
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// ConnectAttempts and ConnectDelay shape the connect window. Zero
	// values mean 12 attempts, 5 seconds apart.
	ConnectAttempts int
	ConnectDelay    time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Host:     utils.GetEnv("RMQ_HOST", "localhost", log),
		Port:     utils.GetEnvAsInt("RMQ_PORT", 5672, log),
		User:     utils.GetEnv("RMQ_USER", "guest", log),
		Password: utils.GetEnv("RMQ_PASSWORD", "guest", log),
	}
}

func (c Config) url() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

func (c Config) attempts() int {
	if c.ConnectAttempts > 0 {
		return c.ConnectAttempts
	}
	return defaultConnectAttempts
}

func (c Config) delay() time.Duration {
	if c.ConnectDelay > 0 {
		return c.ConnectDelay
	}
	return defaultConnectDelay
}

// Broker wraps one AMQP connection and channel. A lost connection is redialed
// inside the connect window and previously declared topology is redeclared
// before traffic resumes, so publishers and consumers never observe an error
// during a reconnect window.
type Broker struct {
	cfg Config
	log *logger.Logger

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	declarations []declaration
	closed       bool
}

// Connect dials the broker, retrying inside the connect window. Exhausting
// the window returns ErrBrokerUnavailable.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Broker, error) {
	b := &Broker{cfg: cfg, log: log.With("component", "broker")}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.dialLocked(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// dialLocked requires b.mu held. On success it installs a fresh connection
// and channel, replays recorded topology and arms the close monitor.
func (b *Broker) dialLocked(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= b.cfg.attempts(); attempt++ {
		conn, err := amqp.Dial(b.cfg.url())
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr == nil {
				if err := b.redeclare(ch); err != nil {
					_ = conn.Close()
					lastErr = err
				} else {
					b.conn = conn
					b.ch = ch
					go b.monitor(conn, conn.NotifyClose(make(chan *amqp.Error, 1)))
					b.log.Info("Connected to broker", "host", b.cfg.Host, "port", b.cfg.Port)
					return nil
				}
			} else {
				_ = conn.Close()
				lastErr = chErr
			}
		} else {
			lastErr = err
		}
		b.log.Warn("Failed to connect to broker, retrying", "attempt", attempt, "delay", b.cfg.delay(), "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.delay()):
		}
	}
	return fmt.Errorf("%w: %v", ErrBrokerUnavailable, lastErr)
}

func (b *Broker) redeclare(ch *amqp.Channel) error {
	for _, d := range b.declarations {
		if err := d(ch); err != nil {
			return err
		}
	}
	return nil
}

// monitor redials when the server drops the watched connection. A clean
// client-side Close closes the notify channel without an error and the
// monitor exits.
func (b *Broker) monitor(conn *amqp.Connection, closeCh <-chan *amqp.Error) {
	amqpErr, ok := <-closeCh
	if !ok || amqpErr == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.conn != conn {
		return
	}
	b.log.Warn("Broker connection lost, reconnecting", "error", amqpErr)
	b.conn, b.ch = nil, nil
	if err := b.dialLocked(context.Background()); err != nil {
		b.log.Error("Broker reconnect failed", "error", err)
	}
}

// channel returns the live channel, redialing first if the connection is gone.
func (b *Broker) channel(ctx context.Context) (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.ch != nil && !b.conn.IsClosed() {
		return b.ch, nil
	}
	b.conn, b.ch = nil, nil
	if err := b.dialLocked(ctx); err != nil {
		return nil, err
	}
	return b.ch, nil
}

// invalidate discards the current connection if it is still the one the
// caller failed on.
func (b *Broker) invalidate(ch *amqp.Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.ch != ch {
		return
	}
	if b.conn != nil && !b.conn.IsClosed() {
		_ = b.conn.Close()
	}
	b.conn, b.ch = nil, nil
}

// Publish marshals v as JSON and publishes it to exchange under key. The
// empty exchange routes directly to the queue named by key. A publish that
// fails on a dropped connection is retried once on a fresh one.
func (b *Broker) Publish(ctx context.Context, exchange, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", key, err)
	}
	msg := amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		Body:            body,
	}
	for attempt := 0; ; attempt++ {
		ch, err := b.channel(ctx)
		if err != nil {
			return err
		}
		pubErr := ch.PublishWithContext(ctx, exchange, key, false, false, msg)
		if pubErr == nil {
			return nil
		}
		if attempt > 0 {
			return fmt.Errorf("publish to %s/%s: %w", exchange, key, pubErr)
		}
		b.log.Warn("Publish failed, reconnecting", "exchange", exchange, "key", key, "error", pubErr)
		b.invalidate(ch)
	}
}

// Consume delivers messages from queue to handler in broker order until ctx
// ends. Acking is the handler's responsibility. prefetch 0 keeps the server
// default window.
func (b *Broker) Consume(ctx context.Context, queue, consumerTag string, prefetch int, handler func(amqp.Delivery)) error {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ch, err := b.channel(ctx)
		if err != nil {
			return err
		}
		if prefetch > 0 {
			if err := ch.Qos(prefetch, 0, false); err != nil {
				return fmt.Errorf("set qos on %s: %w", queue, err)
			}
		}
		deliveries, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
		if err != nil {
			failures++
			if failures > 1 {
				return fmt.Errorf("consume %s: %w", queue, err)
			}
			b.log.Warn("Consume failed, reconnecting", "queue", queue, "error", err)
			b.invalidate(ch)
			continue
		}
		failures = 0
		b.log.Info("Consuming", "queue", queue, "consumerTag", consumerTag)
	deliveryLoop:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case d, ok := <-deliveries:
				if !ok {
					b.log.Warn("Delivery stream closed, reconnecting", "queue", queue)
					b.invalidate(ch)
					break deliveryLoop
				}
				handler(d)
			}
		}
	}
}

// Close tears the connection down. Safe to call more than once.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil && !b.conn.IsClosed() {
		if err := b.conn.Close(); err != nil {
			return err
		}
	}
	b.conn, b.ch = nil, nil
	return nil
}
