// Package consumer runs a single-topic Kafka consumer that applies records strictly
// in order.
//
// One Consumer owns one topic subscription. Records are handed to the Handler one at a
// time and committed only after the handler returns nil, giving at-least-once delivery
// with per-partition ordering. A handler error is fatal to the worker: the record is
// left uncommitted and Run returns so a supervisor can restart it.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a transport-neutral view of a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. Returning an error stops the worker without
// committing the message.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Worker is a long-lived consumer loop with graceful shutdown.
type Worker interface {
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Config identifies the subscription.
type Config struct {
	Brokers []string
	Group   string
	Topic   string
}

// Consumer is a franz-go backed Worker.
type Consumer struct {
	client  *kgo.Client
	topic   string
	handler Handler
	logger  *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopped  bool
	running  bool
	done     chan struct{}
	closeOne sync.Once
}

// New creates a consumer-group member for cfg.Topic. Extra kgo options are appended.
func New(cfg Config, handler Handler, logger *slog.Logger, opts ...kgo.Opt) (*Consumer, error) {
	if cfg.Topic == "" || cfg.Group == "" {
		return nil, errors.New("consumer requires topic and group")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.FetchMaxWait(500 * time.Millisecond),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer for %s: %w", cfg.Topic, err)
	}
	return &Consumer{
		client:  client,
		topic:   cfg.Topic,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Run polls and handles records until Stop is called, ctx is cancelled, or the
// handler fails. The in-flight record always runs to completion: handlers get a
// context that is not cancelled by shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		cancel()
		c.closeClient()
		close(c.done)
		return nil
	}
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	defer close(c.done)
	defer c.closeClient()
	defer cancel()

	handleCtx := context.WithoutCancel(ctx)
	c.logger.Info("consumer started", "topic", c.topic)

	for {
		fetches := c.client.PollFetches(pollCtx)
		if pollCtx.Err() != nil || fetches.IsClientClosed() {
			c.logger.Info("consumer stopping", "topic", c.topic)
			return nil
		}

		var fetchErr error
		fetches.EachError(func(topic string, partition int32, err error) {
			if fetchErr == nil {
				fetchErr = fmt.Errorf("fetch %s/%d: %w", topic, partition, err)
			}
		})
		if fetchErr != nil {
			return fetchErr
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			rec := iter.Next()
			if err := c.handler.Handle(handleCtx, toMessage(rec)); err != nil {
				return fmt.Errorf("handle %s/%d@%d: %w", rec.Topic, rec.Partition, rec.Offset, err)
			}
			if err := c.client.CommitRecords(handleCtx, rec); err != nil {
				return fmt.Errorf("commit %s/%d@%d: %w", rec.Topic, rec.Partition, rec.Offset, err)
			}
			if pollCtx.Err() != nil {
				c.logger.Info("consumer stopping after in-flight message", "topic", c.topic)
				return nil
			}
		}
	}
}

// Stop stops accepting new records, waits for the in-flight record, then
// disconnects from the broker.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	running := c.running
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	if !running {
		c.closeClient()
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) closeClient() {
	c.closeOne.Do(c.client.Close)
}

func toMessage(rec *kgo.Record) *Message {
	msg := &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Timestamp: rec.Timestamp,
	}
	if len(rec.Headers) > 0 {
		msg.Headers = make(map[string]string, len(rec.Headers))
		for _, h := range rec.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}
