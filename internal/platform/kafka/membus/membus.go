// Package membus is an in-process stand-in for the Kafka topics, used when the
// service runs without a broker and in tests. Each topic is an append-only log
// with size-based retention; each consumer tracks its own offset and handles
// messages sequentially.
package membus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hoslink/internal/platform/kafka/consumer"
)

// DefaultRetention is how many messages each topic keeps.
const DefaultRetention = 10_000

type topicLog struct {
	mu        sync.Mutex
	base      int64 // offset of msgs[0]
	msgs      []consumer.Message
	retention int
	notify    chan struct{}
}

func newTopicLog(retention int) *topicLog {
	return &topicLog{retention: retention, notify: make(chan struct{})}
}

func (t *topicLog) append(m consumer.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m.Offset = t.base + int64(len(t.msgs))
	t.msgs = append(t.msgs, m)
	if drop := len(t.msgs) - t.retention; drop > 0 {
		t.msgs = append(t.msgs[:0:0], t.msgs[drop:]...)
		t.base += int64(drop)
	}
	close(t.notify)
	t.notify = make(chan struct{})
}

// from returns retained messages at or after offset. Offsets that fell out of
// retention resume at the oldest retained message.
func (t *topicLog) from(offset int64) ([]consumer.Message, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := max(offset-t.base, 0)
	if start >= int64(len(t.msgs)) {
		return nil, t.notify
	}
	out := make([]consumer.Message, int64(len(t.msgs))-start)
	copy(out, t.msgs[start:])
	return out, t.notify
}

// Bus holds all topics.
type Bus struct {
	mu        sync.Mutex
	topics    map[string]*topicLog
	retention int
	now       func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithRetention caps how many messages each topic keeps. Values below one are ignored.
func WithRetention(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.retention = n
		}
	}
}

func New(opts ...Option) *Bus {
	b := &Bus{topics: make(map[string]*topicLog), retention: DefaultRetention, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) topic(name string) *topicLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		t = newTopicLog(b.retention)
		b.topics[name] = t
	}
	return t
}

// Publish appends a message to topic. It never blocks on consumers.
func (b *Bus) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	b.topic(topic).append(consumer.Message{
		Topic:     topic,
		Key:       append([]byte(nil), key...),
		Value:     append([]byte(nil), value...),
		Timestamp: b.now(),
	})
	return nil
}

// Messages returns a snapshot of the retained messages on topic.
func (b *Bus) Messages(topic string) []consumer.Message {
	msgs, _ := b.topic(topic).from(0)
	return msgs
}

// Consumer reads topic from the oldest retained message.
type Consumer struct {
	log     *topicLog
	name    string
	handler consumer.Handler
	logger  *slog.Logger

	offset   atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

var _ consumer.Worker = (*Consumer)(nil)

// NewConsumer subscribes handler to topic.
func (b *Bus) NewConsumer(topic string, handler consumer.Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		log:     b.topic(topic),
		name:    topic,
		handler: handler,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run delivers messages in publish order until Stop, ctx cancellation, or a
// handler error. A failing message is not acknowledged and Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	defer close(c.done)

	handleCtx := context.WithoutCancel(ctx)
	for {
		batch, wait := c.log.from(c.offset.Load())
		for i := range batch {
			if c.stopping(ctx) {
				return nil
			}
			msg := batch[i]
			if err := c.handler.Handle(handleCtx, &msg); err != nil {
				return fmt.Errorf("handle %s@%d: %w", msg.Topic, msg.Offset, err)
			}
			c.offset.Store(msg.Offset + 1)
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-wait:
		case <-c.stop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) stopping(ctx context.Context) bool {
	select {
	case <-c.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Stop signals Run to exit after the in-flight message and waits for it.
func (c *Consumer) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return nil
	}
	select {
	case <-c.done:
		c.logger.Info("in-memory consumer stopped", "topic", c.name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Offset is the next offset Run will deliver.
func (c *Consumer) Offset() int64 {
	return c.offset.Load()
}
