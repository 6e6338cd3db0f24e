package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hoslink/internal/events"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/internal/platform/kafka/consumer"
	"hoslink/internal/platform/metrics"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
	"hoslink/pkg/requestcontext"
)

// HOSRecorder is the engine entry point the ELD consumer drives.
type HOSRecorder interface {
	RecordUpdate(ctx context.Context, driverID domain.DriverID, candidate hosmodels.Candidate) (*hosmodels.HOSRecord, error)
}

// EldUpdateHandler applies ELD_DATA_RECEIVED events. The engine emits
// DRIVER_HOS_UPDATED for every accepted record, carrying the inbound correlation id.
type EldUpdateHandler struct {
	base
	engine HOSRecorder
}

func NewEldUpdateHandler(engine HOSRecorder, dedupe Deduper, logger *slog.Logger, m *metrics.Metrics) *EldUpdateHandler {
	return &EldUpdateHandler{
		base:   base{eventType: events.EventELDDataReceived, dedupe: dedupe, logger: logger, metrics: m},
		engine: engine,
	}
}

func (h *EldUpdateHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	ctx, env := h.open(ctx, msg)
	if env == nil {
		return nil
	}

	var payload events.ELDDataReceivedPayload
	if err := env.DecodePayload(&payload); err != nil {
		h.skip(ctx, msg, reasonMalformed, err)
		return nil
	}
	driverID, candidate, err := h.candidate(ctx, env, payload)
	if err != nil {
		h.skip(ctx, msg, reasonMalformed, err)
		return nil
	}

	rec, err := h.engine.RecordUpdate(ctx, driverID, candidate)
	if err != nil {
		if permanent(err) {
			h.skip(ctx, msg, reasonRejected, err)
			return nil
		}
		return fmt.Errorf("apply ELD update for %s: %w", driverID, err)
	}

	h.done(ctx, msg, env)
	h.logger.DebugContext(ctx, "ELD update applied",
		"driver_id", driverID,
		"record_id", rec.ID,
		"event_id", env.Metadata.EventID,
	)
	return nil
}

func (h *EldUpdateHandler) candidate(ctx context.Context, env *events.Envelope, p events.ELDDataReceivedPayload) (domain.DriverID, hosmodels.Candidate, error) {
	driverID, err := domain.ParseDriverID(p.DriverID)
	if err != nil {
		return "", hosmodels.Candidate{}, err
	}
	if !p.HOSData.Complete() {
		return "", hosmodels.Candidate{}, dErrors.New(dErrors.CodeMessageFormat, "hos_data missing or incomplete")
	}
	status, err := hosmodels.ParseStatus(p.HOSData.Status)
	if err != nil {
		return "", hosmodels.Candidate{}, err
	}

	c := hosmodels.Candidate{
		Status:                  status,
		StatusSince:             p.HOSData.StatusSince,
		DrivingMinutesRemaining: *p.HOSData.DrivingMinutesRemaining,
		DutyMinutesRemaining:    *p.HOSData.DutyMinutesRemaining,
		CycleMinutesRemaining:   *p.HOSData.CycleMinutesRemaining,
		EldLogID:                domain.EldLogID(p.HOSData.EldLogID),
		RecordedAt:              observedAt(ctx, env.Metadata.EventTime),
	}
	if p.VehicleID != "" {
		if c.VehicleID, err = domain.ParseVehicleID(p.VehicleID); err != nil {
			return "", hosmodels.Candidate{}, err
		}
	}
	if loc := p.HOSData.Location; loc != nil {
		if loc.Latitude == nil || loc.Longitude == nil {
			return "", hosmodels.Candidate{}, dErrors.New(dErrors.CodeMessageFormat, "hos_data.location is incomplete")
		}
		c.Location = &geo.Point{Latitude: *loc.Latitude, Longitude: *loc.Longitude}
	}
	return driverID, c, nil
}

// observedAt uses the envelope time as the record's recorded_at so a redelivered
// older event never supersedes a newer one. Missing or future times fall back to now.
func observedAt(ctx context.Context, eventTime time.Time) *time.Time {
	if eventTime.IsZero() || eventTime.After(requestcontext.Now(ctx)) {
		return nil
	}
	t := eventTime.UTC()
	return &t
}
