// Package service implements the HOS State Engine: the authoritative, append-only
// history of HOS records per driver, plus the compliance, prediction and load checks
// derived from the current record.
//
// RecordUpdate is the only mutation. It validates the candidate, then appends the
// record and refreshes the availability projection in one unit of work keyed by
// driver, so concurrent updates for one driver serialise while different drivers
// proceed in parallel. Events are emitted only after the unit of work commits; a
// failed emit is logged and never fails the caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hoslink/internal/eld/providers"
	"hoslink/internal/hos/models"
	"hoslink/internal/platform/metrics"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/platform/sentinel"
	"hoslink/pkg/requestcontext"
)

const tracerName = "hoslink/internal/hos/service"

// Engine is the HOS State Engine.
type Engine struct {
	records    RecordStore
	drivers    DriverDirectory
	projection Projection
	uow        UnitOfWork

	producer EventProducer
	vendors  ProviderResolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	newID    func() string
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithProducer enables post-commit event emission.
func WithProducer(p EventProducer) Option {
	return func(e *Engine) {
		e.producer = p
	}
}

// WithProviders enables SyncFromELD.
func WithProviders(r ProviderResolver) Option {
	return func(e *Engine) {
		e.vendors = r
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

func New(records RecordStore, drivers DriverDirectory, projection Projection, uow UnitOfWork, opts ...Option) (*Engine, error) {
	switch {
	case records == nil:
		return nil, errors.New("record store is required")
	case drivers == nil:
		return nil, errors.New("driver directory is required")
	case projection == nil:
		return nil, errors.New("availability projection is required")
	case uow == nil:
		return nil, errors.New("unit of work is required")
	}
	e := &Engine{
		records:    records,
		drivers:    drivers,
		projection: projection,
		uow:        uow,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// GetCurrent returns the driver's record with the latest recorded_at.
func (e *Engine) GetCurrent(ctx context.Context, driverID domain.DriverID) (*models.HOSRecord, error) {
	if driverID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "driver_id is required")
	}
	rec, err := e.records.Latest(ctx, driverID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no HOS history for driver %s", driverID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current HOS record")
	}
	return rec, nil
}

// GetHistory returns records with from <= recorded_at <= to, newest first. An empty
// range is not an error.
func (e *Engine) GetHistory(ctx context.Context, driverID domain.DriverID, from, to time.Time) ([]*models.HOSRecord, error) {
	if driverID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "driver_id is required")
	}
	if to.Before(from) {
		return nil, dErrors.New(dErrors.CodeValidation, "history range end is before start")
	}
	recs, err := e.records.History(ctx, driverID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load HOS history")
	}
	if recs == nil {
		recs = []*models.HOSRecord{}
	}
	return recs, nil
}

// RecordUpdate validates and appends a new record, refreshes the availability
// projection in the same unit of work, and emits DRIVER_HOS_UPDATED (plus
// DRIVER_STATUS_CHANGED when the status moved) after commit.
func (e *Engine) RecordUpdate(ctx context.Context, driverID domain.DriverID, candidate models.Candidate) (*models.HOSRecord, error) {
	ctx, span := e.tracer.Start(ctx, "hos.RecordUpdate", trace.WithAttributes(attribute.String("driver_id", driverID.String())))
	defer span.End()

	start := time.Now()
	rec, previous, err := e.recordUpdate(ctx, driverID, candidate)
	e.metrics.ObserveRecordUpdate(time.Since(start))
	if err != nil {
		e.metrics.IncHOSUpdate(outcomeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	e.metrics.IncHOSUpdate("accepted")

	e.logger.InfoContext(ctx, "hos record accepted",
		"driver_id", driverID,
		"record_id", rec.ID,
		"status", rec.Status,
		"driving_minutes_remaining", rec.DrivingMinutesRemaining,
		"recorded_at", rec.RecordedAt,
	)
	e.emit(ctx, rec, previous)
	return rec, nil
}

func (e *Engine) recordUpdate(ctx context.Context, driverID domain.DriverID, candidate models.Candidate) (*models.HOSRecord, *models.HOSRecord, error) {
	if driverID.IsNil() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "driver_id is required")
	}
	if err := candidate.Validate(); err != nil {
		return nil, nil, err
	}

	var rec, previous *models.HOSRecord
	// The existence check shares the driver's unit of work so a concurrent
	// delete either lands before it or waits for this update to commit.
	err := e.uow.Do(ctx, driverID.String(), func(ctx context.Context) error {
		exists, err := e.drivers.Exists(ctx, driverID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up driver")
		}
		if !exists {
			return dErrors.Newf(dErrors.CodeNotFound, "driver %s not found", driverID)
		}

		current, err := e.records.Latest(ctx, driverID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			current = nil
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current HOS record")
		}

		built, err := candidate.Build(e.newID(), driverID, current, requestcontext.Now(ctx).UTC())
		if err != nil {
			return err
		}
		if err := e.records.Append(ctx, built); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist HOS record")
		}
		if err := e.projection.ApplyHOS(ctx, built); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update availability projection")
		}
		rec, previous = built, current
		return nil
	})
	if err != nil {
		var de *dErrors.Error
		if !errors.As(err, &de) {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "hos update transaction failed")
		}
		return nil, nil, err
	}
	return rec, previous, nil
}

// emit runs after commit. Failures are logged by the producer and otherwise ignored.
func (e *Engine) emit(ctx context.Context, rec, previous *models.HOSRecord) {
	if e.producer == nil {
		return
	}
	if previous != nil && rec.Supersedes(previous.RecordedAt) {
		changed, err := models.Transition(ctx, previous.Status, rec.Status)
		if err != nil {
			e.logger.WarnContext(ctx, "status transition check failed", "driver_id", rec.DriverID, "error", err)
		}
		if changed {
			_ = e.producer.DriverStatusChanged(ctx, rec.DriverID, previous.Status, rec.Status, rec.RecordedAt)
		}
	}
	_ = e.producer.DriverHOSUpdated(ctx, rec)
}

// CheckCompliance reports exhausted budgets on the current record.
func (e *Engine) CheckCompliance(ctx context.Context, driverID domain.DriverID) (*models.ComplianceResult, error) {
	rec, err := e.GetCurrent(ctx, driverID)
	if err != nil {
		return nil, err
	}
	res := models.Evaluate(rec)
	for _, b := range res.Exhausted {
		e.metrics.IncComplianceViolation(string(b))
	}
	return &res, nil
}

// PredictAvailability projects the current budgets to at with the linear model.
func (e *Engine) PredictAvailability(ctx context.Context, driverID domain.DriverID, at time.Time) (*models.Prediction, error) {
	rec, err := e.GetCurrent(ctx, driverID)
	if err != nil {
		return nil, err
	}
	p := models.Predict(rec, requestcontext.Now(ctx), at)
	return &p, nil
}

// ValidateForLoad checks the driver has enough driving time for the load.
// pickupTime is accepted for interface stability; the check uses current budgets.
func (e *Engine) ValidateForLoad(ctx context.Context, driverID domain.DriverID, estimatedDrivingMinutes int, pickupTime time.Time) (*models.LoadValidation, error) {
	if estimatedDrivingMinutes < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "estimated driving minutes must not be negative")
	}
	rec, err := e.GetCurrent(ctx, driverID)
	if err != nil {
		return nil, err
	}
	res := models.ValidateLoad(rec, estimatedDrivingMinutes)
	if !res.Valid {
		e.logger.DebugContext(ctx, "load rejected on driving hours",
			"driver_id", driverID,
			"pickup_time", pickupTime,
			"reason", res.Reason,
		)
	}
	return &res, nil
}

// SyncFromELD pulls the driver's snapshot from vendor and applies it. Vendor failures
// surface as retryable integration errors naming the vendor.
func (e *Engine) SyncFromELD(ctx context.Context, driverID domain.DriverID, vendor, deviceID string) (*models.HOSRecord, error) {
	ctx, span := e.tracer.Start(ctx, "hos.SyncFromELD", trace.WithAttributes(
		attribute.String("driver_id", driverID.String()),
		attribute.String("vendor", vendor),
	))
	defer span.End()

	if e.vendors == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "ELD sync is not configured")
	}
	provider, err := e.vendors.Provider(vendor)
	if err != nil {
		return nil, err
	}

	snapshot, err := provider.GetDriverHOS(ctx, driverID, deviceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vendor call failed")
		e.logger.WarnContext(ctx, "ELD sync failed",
			"driver_id", driverID,
			"vendor", provider.Vendor(),
			"category", providers.GetCategory(err),
			"retryable", providers.IsRetryable(err),
			"error", err,
		)
		code := dErrors.CodeIntegration
		if providers.GetCategory(err) == providers.ErrorTimeout {
			code = dErrors.CodeTimeout
		}
		return nil, dErrors.Wrap(err, code, fmt.Sprintf("ELD vendor %s request failed", provider.Vendor()))
	}

	candidate := snapshot.Candidate()
	if candidate.StatusSince != nil && candidate.StatusSince.After(requestcontext.Now(ctx)) {
		candidate.StatusSince = nil
	}
	return e.RecordUpdate(ctx, driverID, candidate)
}

func outcomeOf(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeNotFound:
		return "rejected"
	default:
		return "failed"
	}
}
