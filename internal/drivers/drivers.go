// Package drivers is the driver directory: who exists, their endorsements and
// dispatch preferences.
package drivers

import (
	"hoslink/internal/drivers/service"
	"hoslink/internal/drivers/store"
)

// Service exposes driver registration and lookup.
type Service = service.Service

// NewService constructs the driver service over its store and the availability projection.
func NewService(drivers service.Store, projection service.Projection, uow service.UnitOfWork, opts ...service.Option) (*Service, error) {
	return service.New(drivers, projection, uow, opts...)
}

// NewInMemoryStore returns the single-process driver store.
func NewInMemoryStore() *store.InMemoryStore {
	return store.NewInMemory()
}
