//go:build integration

package consumer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hoslink/internal/platform/kafka/admin"
	"hoslink/internal/platform/kafka/consumer"
	"hoslink/internal/platform/kafka/producer"
	"hoslink/internal/platform/logger"
	"hoslink/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	brokers []string
	topic   string
	prod    *producer.Producer
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaSuite) SetupTest() {
	s.topic = fmt.Sprintf("eld.events.%d", time.Now().UnixNano())
	created, err := admin.EnsureTopics(context.Background(), s.brokers, 3, 1, s.topic)
	s.Require().NoError(err)
	s.Equal([]string{s.topic}, created)

	again, err := admin.EnsureTopics(context.Background(), s.brokers, 3, 1, s.topic)
	s.Require().NoError(err)
	s.Empty(again, "existing topics are not reported as created")

	s.prod, err = producer.New(s.brokers, 5*time.Second)
	s.Require().NoError(err)
}

func (s *KafkaSuite) TearDownTest() {
	s.NoError(s.prod.Close(context.Background()))
}

type recorder struct {
	mu   sync.Mutex
	seen map[string][]string
	fail string
}

func (r *recorder) Handle(_ context.Context, msg *consumer.Message) error {
	if string(msg.Value) == r.fail {
		return errors.New("transient")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[string(msg.Key)] = append(r.seen[string(msg.Key)], string(msg.Value))
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.seen {
		n += len(v)
	}
	return n
}

func (s *KafkaSuite) TestPerKeyOrderIsPreserved() {
	ctx := context.Background()
	for i := range 10 {
		for _, key := range []string{"D1", "D2"} {
			s.Require().NoError(s.prod.Publish(ctx, s.topic, []byte(key), []byte(fmt.Sprintf("%s-%02d", key, i))))
		}
	}

	rec := &recorder{seen: map[string][]string{}}
	c, err := consumer.New(consumer.Config{Brokers: s.brokers, Group: "g-" + s.topic, Topic: s.topic}, rec, logger.Discard())
	s.Require().NoError(err)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	s.Require().Eventually(func() bool { return rec.count() == 20 }, 30*time.Second, 100*time.Millisecond)
	s.Require().NoError(c.Stop(ctx))
	s.NoError(<-done)

	for _, key := range []string{"D1", "D2"} {
		want := make([]string, 10)
		for i := range want {
			want[i] = fmt.Sprintf("%s-%02d", key, i)
		}
		s.Equal(want, rec.seen[key])
	}
}

func (s *KafkaSuite) TestFailedMessageIsRedeliveredToTheGroup() {
	ctx := context.Background()
	s.Require().NoError(s.prod.Publish(ctx, s.topic, []byte("D1"), []byte("first")))
	s.Require().NoError(s.prod.Publish(ctx, s.topic, []byte("D1"), []byte("second")))

	group := "g-" + s.topic
	failing := &recorder{seen: map[string][]string{}, fail: "second"}
	c, err := consumer.New(consumer.Config{Brokers: s.brokers, Group: group, Topic: s.topic}, failing, logger.Discard())
	s.Require().NoError(err)
	s.Error(c.Run(ctx), "handler failure stops the worker")
	s.Equal([]string{"first"}, failing.seen["D1"])

	healthy := &recorder{seen: map[string][]string{}}
	c, err = consumer.New(consumer.Config{Brokers: s.brokers, Group: group, Topic: s.topic}, healthy, logger.Discard())
	s.Require().NoError(err)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	s.Require().Eventually(func() bool { return healthy.count() == 1 }, 30*time.Second, 100*time.Millisecond)
	s.Require().NoError(c.Stop(ctx))
	s.NoError(<-done)
	s.Equal([]string{"second"}, healthy.seen["D1"], "committed message is not redelivered")
}
