package membus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoslink/internal/platform/kafka/consumer"
	"hoslink/internal/platform/logger"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := New()
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	seen := make(chan struct{}, 10)
	c := bus.NewConsumer("eld.events", consumer.HandlerFunc(func(_ context.Context, m *consumer.Message) error {
		mu.Lock()
		got = append(got, string(m.Value))
		mu.Unlock()
		seen <- struct{}{}
		return nil
	}), logger.Discard())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(ctx, "eld.events", []byte("D1"), []byte(v)))
	}
	for range 3 {
		select {
		case <-seen:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	require.NoError(t, c.Stop(ctx))
	require.NoError(t, <-errCh)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, int64(3), c.Offset())
}

func TestBus_HandlerErrorStopsWithoutAck(t *testing.T) {
	bus := New()
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, "t", nil, []byte("boom")))

	c := bus.NewConsumer("t", consumer.HandlerFunc(func(context.Context, *consumer.Message) error {
		return errors.New("db down")
	}), logger.Discard())

	err := c.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Equal(t, int64(0), c.Offset())
}

func TestBus_StopBeforeRun(t *testing.T) {
	bus := New()
	c := bus.NewConsumer("t", consumer.HandlerFunc(func(context.Context, *consumer.Message) error { return nil }), logger.Discard())
	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Run(context.Background()))
}

func TestBus_MessagesSnapshot(t *testing.T) {
	bus := New()
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, "driver.events", []byte("D1"), []byte(`{}`)))

	msgs := bus.Messages("driver.events")
	require.Len(t, msgs, 1)
	assert.Equal(t, "D1", string(msgs[0].Key))
	assert.Equal(t, int64(0), msgs[0].Offset)
	assert.Empty(t, bus.Messages("other"))
}

func TestBus_PublishCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, New().Publish(ctx, "t", nil, nil))
}

func TestBus_RetentionDropsOldestMessages(t *testing.T) {
	bus := New(WithRetention(2))
	ctx := context.Background()
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(ctx, "driver.events", []byte("D1"), []byte(v)))
	}

	msgs := bus.Messages("driver.events")
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", string(msgs[0].Value))
	assert.Equal(t, int64(1), msgs[0].Offset, "offsets stay absolute after trimming")
	assert.Equal(t, int64(2), msgs[1].Offset)

	var got []string
	c := bus.NewConsumer("driver.events", consumer.HandlerFunc(func(_ context.Context, m *consumer.Message) error {
		got = append(got, string(m.Value))
		if len(got) == 2 {
			return errors.New("stop here")
		}
		return nil
	}), logger.Discard())
	require.Error(t, c.Run(ctx))
	assert.Equal(t, []string{"b", "c"}, got, "a lagging consumer resumes at the oldest retained message")
	assert.Equal(t, int64(2), c.Offset())
}

func TestBus_OffsetReadableWhileRunning(t *testing.T) {
	bus := New()
	ctx := context.Background()
	c := bus.NewConsumer("t", consumer.HandlerFunc(func(context.Context, *consumer.Message) error { return nil }), logger.Discard())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	for range 50 {
		require.NoError(t, bus.Publish(ctx, "t", nil, []byte("x")))
	}
	require.Eventually(t, func() bool { return c.Offset() == 50 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, <-errCh)
}
