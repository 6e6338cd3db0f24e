package service

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"hoslink/internal/eld/providers"
	"hoslink/internal/hos/models"
	"hoslink/pkg/domain"
)

// RecordStore is the append-only HOS history.
type RecordStore interface {
	Append(ctx context.Context, rec *models.HOSRecord) error
	Latest(ctx context.Context, driverID domain.DriverID) (*models.HOSRecord, error)
	History(ctx context.Context, driverID domain.DriverID, from, to time.Time) ([]*models.HOSRecord, error)
}

// DriverDirectory answers whether a driver exists and is active.
type DriverDirectory interface {
	Exists(ctx context.Context, driverID domain.DriverID) (bool, error)
}

// Projection keeps the availability read model in step with accepted records.
type Projection interface {
	ApplyHOS(ctx context.Context, rec *models.HOSRecord) error
}

// UnitOfWork runs fn atomically, serialised per key.
type UnitOfWork interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// EventProducer emits HOS events after commit.
type EventProducer interface {
	DriverHOSUpdated(ctx context.Context, rec *models.HOSRecord) error
	DriverStatusChanged(ctx context.Context, driverID domain.DriverID, from, to models.Status, at time.Time) error
}

// ProviderResolver looks up an ELD adapter by vendor name.
type ProviderResolver interface {
	Provider(vendor string) (providers.Provider, error)
}
