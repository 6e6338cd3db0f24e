// Package service maintains the availability projection and answers availability
// queries.
//
// Projector is the write side driven by the HOS engine and the driver directory; it
// always runs inside the caller's unit of work. Service is the query side and owns
// position, window and rebuild updates.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hoslink/internal/availability/models"
	"hoslink/internal/availability/store"
	drivermodels "hoslink/internal/drivers/models"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/platform/sentinel"
	"hoslink/pkg/requestcontext"
)

type Store interface {
	Get(ctx context.Context, id domain.DriverID) (*models.DriverAvailability, error)
	Put(ctx context.Context, a *models.DriverAvailability) error
	Delete(ctx context.Context, id domain.DriverID) error
	List(ctx context.Context, f store.Filter) ([]*models.DriverAvailability, error)
}

type Projector struct {
	rows   Store
	logger *slog.Logger
}

func NewProjector(rows Store, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{rows: rows, logger: logger}
}

// ApplyHOS folds an accepted HOS record into the driver's row, creating it if needed.
// Records older than the one already applied are ignored.
func (p *Projector) ApplyHOS(ctx context.Context, rec *hosmodels.HOSRecord) error {
	now := requestcontext.Now(ctx).UTC()
	row, err := p.load(ctx, rec.DriverID, now)
	if err != nil {
		return err
	}
	if !row.ApplyHOS(rec, now) {
		p.logger.DebugContext(ctx, "stale hos record not projected",
			"driver_id", rec.DriverID,
			"record_id", rec.ID,
			"recorded_at", rec.RecordedAt,
		)
		return nil
	}
	return p.rows.Put(ctx, row)
}

// Seed copies a newly registered driver's preferences into the projection.
func (p *Projector) Seed(ctx context.Context, d *drivermodels.Driver) error {
	now := requestcontext.Now(ctx).UTC()
	row, err := p.load(ctx, d.ID, now)
	if err != nil {
		return err
	}
	row.ApplyDriver(d, now)
	return p.rows.Put(ctx, row)
}

// Remove drops the driver's row.
func (p *Projector) Remove(ctx context.Context, id domain.DriverID) error {
	return p.rows.Delete(ctx, id)
}

func (p *Projector) load(ctx context.Context, id domain.DriverID, now time.Time) (*models.DriverAvailability, error) {
	row, err := p.rows.Get(ctx, id)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return models.New(id, now), nil
	case err != nil:
		return nil, fmt.Errorf("load availability for %s: %w", id, err)
	}
	return row, nil
}
