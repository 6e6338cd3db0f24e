package consumer

import (
	"context"
	"log/slog"

	"hoslink/internal/events"
	"hoslink/internal/platform/kafka/consumer"
	"hoslink/internal/platform/metrics"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/requestcontext"
)

// Skip reasons reported on hoslink_messages_skipped_total.
const (
	reasonMalformed  = "malformed"
	reasonEventType  = "unexpected_event_type"
	reasonFiltered   = "filtered"
	reasonRejected   = "rejected"
	reasonDuplicate  = "duplicate"
	reasonDedupeFail = "dedupe_unavailable"
)

// base carries what both handlers share: decoding, dedupe, and skip logging.
type base struct {
	eventType events.EventType
	dedupe    Deduper
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// open decodes the envelope and checks type and dedupe. A nil envelope means the
// message was skipped and should be committed.
func (b *base) open(ctx context.Context, msg *consumer.Message) (context.Context, *events.Envelope) {
	env, err := events.Decode(msg.Value)
	if err != nil {
		b.skip(ctx, msg, reasonMalformed, err)
		return ctx, nil
	}
	if env.Metadata.EventType != b.eventType {
		b.skip(ctx, msg, reasonEventType, dErrors.Newf(dErrors.CodeMessageFormat,
			"expected %s, got %s", b.eventType, env.Metadata.EventType))
		return ctx, nil
	}

	ctx = requestcontext.WithCorrelationID(ctx, env.Metadata.CorrelationID)
	if b.dedupe != nil {
		seen, err := b.dedupe.Seen(ctx, env.Metadata.EventID)
		switch {
		case err != nil:
			// Without dedupe the latest-recorded_at rule still keeps state correct.
			b.logger.WarnContext(ctx, "dedupe lookup failed, processing anyway",
				"topic", msg.Topic, "event_id", env.Metadata.EventID, "error", err)
			b.metrics.IncMessageSkipped(msg.Topic, reasonDedupeFail)
		case seen:
			b.logger.DebugContext(ctx, "duplicate event skipped",
				"topic", msg.Topic, "event_id", env.Metadata.EventID)
			b.metrics.IncMessageSkipped(msg.Topic, reasonDuplicate)
			return ctx, nil
		}
	}
	return ctx, env
}

// done marks the envelope processed.
func (b *base) done(ctx context.Context, msg *consumer.Message, env *events.Envelope) {
	if b.dedupe != nil {
		if err := b.dedupe.Mark(ctx, env.Metadata.EventID); err != nil {
			b.logger.WarnContext(ctx, "failed to mark event processed",
				"topic", msg.Topic, "event_id", env.Metadata.EventID, "error", err)
		}
	}
	b.metrics.IncMessageConsumed(msg.Topic)
}

// skip logs the full raw message for forensic review.
func (b *base) skip(ctx context.Context, msg *consumer.Message, reason string, err error) {
	b.logger.WarnContext(ctx, "skipping message",
		"reason", reason,
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"payload", string(msg.Value),
		"error", err,
	)
	b.metrics.IncMessageSkipped(msg.Topic, reason)
}

// permanent reports whether the engine rejected the input itself, so retrying the
// same message can never succeed.
func permanent(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeNotFound, dErrors.CodeMessageFormat, dErrors.CodeBadRequest:
		return true
	default:
		return false
	}
}
