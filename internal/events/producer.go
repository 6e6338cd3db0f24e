package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hoslink/internal/hos/models"
	"hoslink/internal/platform/metrics"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
)

// Publisher is the message-bus client. Implementations must bound how long Publish
// waits for the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// DriverEventProducer emits driver-domain events keyed by driver id, so every event
// for one driver lands on the same partition in order.
//
// Every method logs a failed publish with full context and returns the error; state
// mutating callers log and carry on rather than fail their request.
type DriverEventProducer struct {
	publisher Publisher
	topic     string
	producer  string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewDriverEventProducer(publisher Publisher, topic, producer string, logger *slog.Logger, m *metrics.Metrics) *DriverEventProducer {
	return &DriverEventProducer{
		publisher: publisher,
		topic:     topic,
		producer:  producer,
		logger:    logger,
		metrics:   m,
	}
}

func (p *DriverEventProducer) DriverCreated(ctx context.Context, payload DriverCreatedPayload) error {
	return p.emit(ctx, EventDriverCreated, payload.DriverID, payload)
}

func (p *DriverEventProducer) DriverStatusChanged(ctx context.Context, driverID domain.DriverID, from, to models.Status, at time.Time) error {
	return p.emit(ctx, EventDriverStatusChanged, driverID.String(), DriverStatusChangedPayload{
		DriverID:       driverID.String(),
		PreviousStatus: string(from),
		Status:         string(to),
		ChangedAt:      at,
	})
}

func (p *DriverEventProducer) DriverHOSUpdated(ctx context.Context, rec *models.HOSRecord) error {
	return p.emit(ctx, EventDriverHOSUpdated, rec.DriverID.String(), DriverHOSUpdatedPayload{
		DriverID:   rec.DriverID.String(),
		RecordID:   rec.ID,
		VehicleID:  rec.VehicleID.String(),
		HOSData:    HOSDataFromRecord(rec),
		RecordedAt: rec.RecordedAt,
	})
}

func (p *DriverEventProducer) DriverLocationUpdated(ctx context.Context, driverID domain.DriverID, point geo.Point, at time.Time) error {
	return p.emit(ctx, EventDriverLocationUpdated, driverID.String(), DriverLocationUpdatedPayload{
		DriverID:  driverID.String(),
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		UpdatedAt: at,
	})
}

func (p *DriverEventProducer) DriverAvailabilityChanged(ctx context.Context, payload DriverAvailabilityChangedPayload) error {
	return p.emit(ctx, EventDriverAvailabilityChanged, payload.DriverID, payload)
}

func (p *DriverEventProducer) DriverScoreUpdated(ctx context.Context, payload DriverScoreUpdatedPayload) error {
	return p.emit(ctx, EventDriverScoreUpdated, payload.DriverID, payload)
}

func (p *DriverEventProducer) DriverDeleted(ctx context.Context, payload DriverDeletedPayload) error {
	return p.emit(ctx, EventDriverDeleted, payload.DriverID, payload)
}

func (p *DriverEventProducer) emit(ctx context.Context, eventType EventType, driverID string, payload any) error {
	env, err := NewEnvelope(ctx, eventType, CategoryDriver, p.producer, payload)
	if err != nil {
		p.fail(ctx, eventType, driverID, nil, err)
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "marshal event envelope")
		p.fail(ctx, eventType, driverID, env.Metadata, err)
		return err
	}
	if err := p.publisher.Publish(ctx, p.topic, []byte(driverID), data); err != nil {
		p.fail(ctx, eventType, driverID, env.Metadata, err)
		return err
	}

	p.metrics.IncEventProduced(string(eventType))
	p.logger.DebugContext(ctx, "event produced",
		"event_type", eventType,
		"event_id", env.Metadata.EventID,
		"correlation_id", env.Metadata.CorrelationID,
		"driver_id", driverID,
	)
	return nil
}

func (p *DriverEventProducer) fail(ctx context.Context, eventType EventType, driverID string, md *Metadata, err error) {
	p.metrics.IncEventFailed(string(eventType))
	attrs := []any{
		"event_type", eventType,
		"topic", p.topic,
		"driver_id", driverID,
		"error", err,
	}
	if md != nil {
		attrs = append(attrs, "event_id", md.EventID, "correlation_id", md.CorrelationID)
	}
	p.logger.ErrorContext(ctx, "failed to produce event", attrs...)
}
