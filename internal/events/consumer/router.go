// Package consumer applies inbound bus messages to the engine.
//
// Handlers never fail on a bad message: malformed envelopes, wrong event types and
// payloads the engine rejects are logged with the raw message and skipped so the
// partition keeps moving. Only transient failures (storage, cancellation) are
// returned, which stops the worker without committing.
package consumer

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hoslink/internal/platform/kafka/consumer"
)

// TopicHandler handles messages from a specific topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches messages to topic-specific handlers.
type Router struct {
	handlers map[string]TopicHandler
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		logger:   logger,
		tracer:   otel.Tracer("hoslink/internal/events/consumer"),
	}
}

// Register adds a handler for a specific topic.
func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

// Handle routes the message to its topic handler. Messages on unregistered topics are
// skipped.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		r.logger.WarnContext(ctx, "no handler for topic, skipping message",
			"topic", msg.Topic,
			"key", string(msg.Key),
		)
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "consume "+msg.Topic, trace.WithAttributes(
		attribute.String("messaging.destination", msg.Topic),
		attribute.Int64("messaging.partition", int64(msg.Partition)),
		attribute.Int64("messaging.offset", msg.Offset),
	))
	defer span.End()

	if err := handler.Handle(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
