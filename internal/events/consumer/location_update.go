package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	availabilitymodels "hoslink/internal/availability/models"
	"hoslink/internal/events"
	"hoslink/internal/platform/kafka/consumer"
	"hoslink/internal/platform/metrics"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
)

// LocationUpdater applies explicit driver positions and emits DRIVER_LOCATION_UPDATED.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, id domain.DriverID, point geo.Point, at time.Time) (*availabilitymodels.DriverAvailability, error)
}

// LocationUpdateHandler applies POSITION_UPDATED events for DRIVER entities.
type LocationUpdateHandler struct {
	base
	locations LocationUpdater
}

func NewLocationUpdateHandler(locations LocationUpdater, dedupe Deduper, logger *slog.Logger, m *metrics.Metrics) *LocationUpdateHandler {
	return &LocationUpdateHandler{
		base:      base{eventType: events.EventPositionUpdated, dedupe: dedupe, logger: logger, metrics: m},
		locations: locations,
	}
}

func (h *LocationUpdateHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	ctx, env := h.open(ctx, msg)
	if env == nil {
		return nil
	}

	var p events.PositionUpdatedPayload
	if err := env.DecodePayload(&p); err != nil {
		h.skip(ctx, msg, reasonMalformed, err)
		return nil
	}
	if p.EntityType != events.EntityTypeDriver {
		h.metrics.IncMessageSkipped(msg.Topic, reasonFiltered)
		return nil
	}
	driverID, err := domain.ParseDriverID(p.EntityID)
	if err != nil {
		h.skip(ctx, msg, reasonMalformed, err)
		return nil
	}
	if p.Latitude == nil || p.Longitude == nil {
		h.skip(ctx, msg, reasonMalformed, dErrors.New(dErrors.CodeMessageFormat, "latitude and longitude are required"))
		return nil
	}

	var at time.Time
	if t := observedAt(ctx, env.Metadata.EventTime); t != nil {
		at = *t
	}
	point := geo.Point{Latitude: *p.Latitude, Longitude: *p.Longitude}
	if _, err := h.locations.UpdateLocation(ctx, driverID, point, at); err != nil {
		if permanent(err) {
			h.skip(ctx, msg, reasonRejected, err)
			return nil
		}
		return fmt.Errorf("apply position for %s: %w", driverID, err)
	}

	h.done(ctx, msg, env)
	return nil
}
