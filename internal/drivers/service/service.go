// Package service manages the driver directory: registration, lookups, score updates
// and soft deletion. Registration seeds the availability projection and deletion
// removes it, in the same unit of work as the directory write.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hoslink/internal/drivers/models"
	"hoslink/internal/events"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/platform/sentinel"
	"hoslink/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, d *models.Driver) error
	FindByID(ctx context.Context, id domain.DriverID) (*models.Driver, error)
	UpdateScore(ctx context.Context, id domain.DriverID, score float64) error
	SoftDelete(ctx context.Context, id domain.DriverID, at time.Time) error
}

// Projection is the availability read model's write side.
type Projection interface {
	Seed(ctx context.Context, d *models.Driver) error
	Remove(ctx context.Context, id domain.DriverID) error
}

type UnitOfWork interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type EventProducer interface {
	DriverCreated(ctx context.Context, payload events.DriverCreatedPayload) error
	DriverScoreUpdated(ctx context.Context, payload events.DriverScoreUpdatedPayload) error
	DriverDeleted(ctx context.Context, payload events.DriverDeletedPayload) error
}

// Service orchestrates the driver directory.
type Service struct {
	drivers    Store
	projection Projection
	uow        UnitOfWork
	producer   EventProducer
	logger     *slog.Logger
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

func New(drivers Store, projection Projection, uow UnitOfWork, opts ...Option) (*Service, error) {
	switch {
	case drivers == nil:
		return nil, errors.New("driver store is required")
	case projection == nil:
		return nil, errors.New("availability projection is required")
	case uow == nil:
		return nil, errors.New("unit of work is required")
	}
	s := &Service{
		drivers:    drivers,
		projection: projection,
		uow:        uow,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a driver and seeds its availability row.
func (s *Service) Register(ctx context.Context, reg models.Registration) (*models.Driver, error) {
	d, err := models.NewDriver(reg, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, d.ID.String(), func(ctx context.Context) error {
		if err := s.drivers.Create(ctx, d); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeConflict, "driver %s already registered", d.ID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create driver")
		}
		if err := s.projection.Seed(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed availability")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "driver registered", "driver_id", d.ID, "endorsements", d.Endorsements)
	if s.producer != nil {
		_ = s.producer.DriverCreated(ctx, events.DriverCreatedPayload{
			DriverID:         d.ID.String(),
			Name:             d.Name,
			Endorsements:     d.Endorsements,
			MaxDistanceMiles: d.MaxDistanceMiles,
			CreatedAt:        d.CreatedAt,
		})
	}
	return d, nil
}

// Get returns an active driver.
func (s *Service) Get(ctx context.Context, id domain.DriverID) (*models.Driver, error) {
	d, err := s.drivers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "driver %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load driver")
	}
	if !d.IsActive() {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "driver %s not found", id)
	}
	return d, nil
}

// Exists reports whether id names an active driver.
func (s *Service) Exists(ctx context.Context, id domain.DriverID) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return false, nil
	default:
		return false, err
	}
}

// UpdateScore sets the driver's dispatch score.
func (s *Service) UpdateScore(ctx context.Context, id domain.DriverID, score float64) (*models.Driver, error) {
	if err := models.ValidateScore(score); err != nil {
		return nil, err
	}
	var previous float64
	err := s.uow.Do(ctx, id.String(), func(ctx context.Context) error {
		d, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		previous = d.Score
		if err := s.drivers.UpdateScore(ctx, id, score); err != nil {
			return s.translate(err, id, "failed to update score")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.producer != nil {
		_ = s.producer.DriverScoreUpdated(ctx, events.DriverScoreUpdatedPayload{
			DriverID:      id.String(),
			PreviousScore: previous,
			Score:         score,
		})
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the driver and drops its availability row. HOS history is kept.
func (s *Service) Delete(ctx context.Context, id domain.DriverID) error {
	at := requestcontext.Now(ctx).UTC()
	err := s.uow.Do(ctx, id.String(), func(ctx context.Context) error {
		if err := s.drivers.SoftDelete(ctx, id, at); err != nil {
			return s.translate(err, id, "failed to delete driver")
		}
		if err := s.projection.Remove(ctx, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove availability")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "driver deleted", "driver_id", id)
	if s.producer != nil {
		_ = s.producer.DriverDeleted(ctx, events.DriverDeletedPayload{DriverID: id.String(), DeletedAt: at})
	}
	return nil
}

func (s *Service) translate(err error, id domain.DriverID, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "driver %s not found", id)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
