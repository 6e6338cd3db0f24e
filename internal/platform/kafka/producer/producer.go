package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const defaultTimeout = 5 * time.Second

// Producer publishes keyed records. Records with the same key land on the same
// partition, which is what gives consumers per-driver ordering.
type Producer struct {
	client  *kgo.Client
	timeout time.Duration
}

// New creates a producer. timeout bounds each Publish call including broker acks.
func New(brokers []string, timeout time.Duration, opts ...kgo.Opt) (*Producer, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, timeout: timeout}, nil
}

// Publish sends one record and waits for acknowledgement, at most p.timeout.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered records and disconnects.
func (p *Producer) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
