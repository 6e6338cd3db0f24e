package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hoslink/internal/platform/kafka/consumer"
	"hoslink/internal/platform/logger"
)

func TestRouter(t *testing.T) {
	var got []string
	r := NewRouter(logger.Discard())
	r.Register("eld.events", consumer.HandlerFunc(func(_ context.Context, m *consumer.Message) error {
		got = append(got, m.Topic)
		return nil
	}))
	r.Register("position.updates", consumer.HandlerFunc(func(context.Context, *consumer.Message) error {
		return errors.New("transient")
	}))

	assert.NoError(t, r.Handle(context.Background(), &consumer.Message{Topic: "eld.events"}))
	assert.Equal(t, []string{"eld.events"}, got)
	assert.Error(t, r.Handle(context.Background(), &consumer.Message{Topic: "position.updates"}))
	assert.NoError(t, r.Handle(context.Background(), &consumer.Message{Topic: "unknown"}))
}
