package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"hoslink/internal/availability/models"
	"hoslink/internal/availability/store"
	drivermodels "hoslink/internal/drivers/models"
	"hoslink/internal/events"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
	"hoslink/pkg/platform/sentinel"
	"hoslink/pkg/requestcontext"
)

// HOSEngine is the part of the HOS engine availability composes with.
type HOSEngine interface {
	GetCurrent(ctx context.Context, driverID domain.DriverID) (*hosmodels.HOSRecord, error)
	CheckCompliance(ctx context.Context, driverID domain.DriverID) (*hosmodels.ComplianceResult, error)
	ValidateForLoad(ctx context.Context, driverID domain.DriverID, estimatedDrivingMinutes int, pickupTime time.Time) (*hosmodels.LoadValidation, error)
}

type DriverDirectory interface {
	Get(ctx context.Context, id domain.DriverID) (*drivermodels.Driver, error)
}

type UnitOfWork interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type EventProducer interface {
	DriverLocationUpdated(ctx context.Context, driverID domain.DriverID, point geo.Point, at time.Time) error
	DriverAvailabilityChanged(ctx context.Context, payload events.DriverAvailabilityChangedPayload) error
}

// NoHOSReason is reported by CheckForLoad for a driver without HOS history.
const NoHOSReason = "No HOS record for driver"

// Service answers availability queries and applies position and window updates.
type Service struct {
	rows     Store
	uow      UnitOfWork
	hos      HOSEngine
	drivers  DriverDirectory
	producer EventProducer
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithProducer(p EventProducer) Option {
	return func(s *Service) {
		s.producer = p
	}
}

func New(rows Store, uow UnitOfWork, hos HOSEngine, drivers DriverDirectory, opts ...Option) (*Service, error) {
	switch {
	case rows == nil:
		return nil, errors.New("availability store is required")
	case uow == nil:
		return nil, errors.New("unit of work is required")
	case hos == nil:
		return nil, errors.New("hos engine is required")
	case drivers == nil:
		return nil, errors.New("driver directory is required")
	}
	s := &Service{rows: rows, uow: uow, hos: hos, drivers: drivers, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the projection row for one driver.
func (s *Service) Get(ctx context.Context, id domain.DriverID) (*models.DriverAvailability, error) {
	row, err := s.rows.Get(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	return row, nil
}

// FindAvailable returns rows matching every specified criterion, ordered by driver id.
func (s *Service) FindAvailable(ctx context.Context, criteria models.Criteria) ([]*models.DriverAvailability, error) {
	c, err := criteria.Normalize()
	if err != nil {
		return nil, err
	}
	rows, err := s.rows.List(ctx, store.Filter{Statuses: c.Statuses, MinDrivingMinutes: c.MinDrivingMinutes})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list availability")
	}
	out := make([]*models.DriverAvailability, 0, len(rows))
	for _, row := range rows {
		if !c.Matches(row) {
			continue
		}
		if c.Near != nil {
			d := geo.DistanceMiles(*c.Near, *row.Location)
			row.DistanceMiles = &d
		}
		out = append(out, row)
	}
	return out, nil
}

type nearOptions struct {
	statuses []hosmodels.Status
	sorted   bool
}

// NearOption refines FindNear.
type NearOption func(*nearOptions)

// WithStatuses restricts FindNear to the given duty statuses.
func WithStatuses(statuses ...hosmodels.Status) NearOption {
	return func(o *nearOptions) {
		o.statuses = append(o.statuses, statuses...)
	}
}

// SortedByDistance orders FindNear results nearest first.
func SortedByDistance() NearOption {
	return func(o *nearOptions) {
		o.sorted = true
	}
}

// FindNear returns drivers within radiusMiles great-circle distance of point.
// Results are ordered by driver id unless SortedByDistance is given.
func (s *Service) FindNear(ctx context.Context, point geo.Point, radiusMiles float64, opts ...NearOption) ([]*models.DriverAvailability, error) {
	var o nearOptions
	for _, opt := range opts {
		opt(&o)
	}
	out, err := s.FindAvailable(ctx, models.Criteria{Statuses: o.statuses, Near: &point, RadiusMiles: radiusMiles})
	if err != nil {
		return nil, err
	}
	if o.sorted {
		sort.SliceStable(out, func(i, j int) bool { return *out[i].DistanceMiles < *out[j].DistanceMiles })
	}
	return out, nil
}

// CheckForLoad evaluates every constraint for the load and reports all that fail.
func (s *Service) CheckForLoad(ctx context.Context, id domain.DriverID, load models.LoadDetails) (*models.LoadCheck, error) {
	if err := load.Validate(); err != nil {
		return nil, err
	}
	row, err := s.rows.Get(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}

	reasons := []string{}
	validation, err := s.hos.ValidateForLoad(ctx, id, load.EstimatedDrivingMinutes, load.PickupTime)
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		reasons = append(reasons, NoHOSReason)
	case err != nil:
		return nil, err
	default:
		if !validation.Valid {
			reasons = append(reasons, validation.Reason)
		}
		compliance, err := s.hos.CheckCompliance(ctx, id)
		if err != nil {
			return nil, err
		}
		reasons = append(reasons, compliance.Violations...)
	}
	reasons = append(reasons, models.LoadConstraints(row, load)...)

	return &models.LoadCheck{Available: len(reasons) == 0, Reasons: reasons}, nil
}

// UpdateLocation records an explicit position observed at at (now when zero) and
// emits DRIVER_LOCATION_UPDATED. Positions older than the row's are ignored.
func (s *Service) UpdateLocation(ctx context.Context, id domain.DriverID, point geo.Point, at time.Time) (*models.DriverAvailability, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).UTC()
	if at.IsZero() {
		at = now
	}
	at = at.UTC()

	var (
		row     *models.DriverAvailability
		applied bool
	)
	err := s.uow.Do(ctx, id.String(), func(ctx context.Context) error {
		var err error
		row, err = s.rows.Get(ctx, id)
		if err != nil {
			return s.translate(err, id)
		}
		applied = row.ApplyLocation(point, at, now)
		if !applied {
			return nil
		}
		if err := s.rows.Put(ctx, row); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store location")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !applied {
		s.logger.DebugContext(ctx, "stale position ignored", "driver_id", id, "observed_at", at)
		return row, nil
	}
	if s.producer != nil {
		_ = s.producer.DriverLocationUpdated(ctx, id, point, at)
	}
	return row, nil
}

// UpdateWindow replaces the driver's availability window and emits
// DRIVER_AVAILABILITY_CHANGED.
func (s *Service) UpdateWindow(ctx context.Context, id domain.DriverID, w models.Window) (*models.DriverAvailability, error) {
	if w.From != nil && w.Until != nil && w.Until.Before(*w.From) {
		return nil, dErrors.New(dErrors.CodeValidation, "available_until is before available_from")
	}
	if w.MaxDistanceMiles != nil && *w.MaxDistanceMiles < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "max_distance_miles must not be negative")
	}

	var row *models.DriverAvailability
	err := s.uow.Do(ctx, id.String(), func(ctx context.Context) error {
		var err error
		row, err = s.rows.Get(ctx, id)
		if err != nil {
			return s.translate(err, id)
		}
		row.ApplyWindow(w, requestcontext.Now(ctx).UTC())
		if err := s.rows.Put(ctx, row); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store availability window")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.producer != nil {
		_ = s.producer.DriverAvailabilityChanged(ctx, events.DriverAvailabilityChangedPayload{
			DriverID:         id.String(),
			AvailableFrom:    row.AvailableFrom,
			AvailableUntil:   row.AvailableUntil,
			MaxDistanceMiles: row.MaxDistanceMiles,
		})
	}
	return row, nil
}

// Rebuild recomputes the driver's row from the directory and the latest HOS record.
// The window and any newer explicit position are kept.
func (s *Service) Rebuild(ctx context.Context, id domain.DriverID) (*models.DriverAvailability, error) {
	var row *models.DriverAvailability
	err := s.uow.Do(ctx, id.String(), func(ctx context.Context) error {
		now := requestcontext.Now(ctx).UTC()
		d, err := s.drivers.Get(ctx, id)
		if err != nil {
			return err
		}

		row, err = s.rows.Get(ctx, id)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			row = models.New(id, now)
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load availability")
		}
		row.ResetHOS()
		row.ApplyDriver(d, now)

		rec, err := s.hos.GetCurrent(ctx, id)
		switch {
		case dErrors.HasCode(err, dErrors.CodeNotFound):
		case err != nil:
			return err
		default:
			row.ApplyHOS(rec, now)
		}

		if err := s.rows.Put(ctx, row); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store availability")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "availability rebuilt", "driver_id", id, "status", row.Status)
	return row, nil
}

func (s *Service) translate(err error, id domain.DriverID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "no availability for driver %s", id)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load availability")
}
