// Package availability is the driver availability projection and the query surface
// used by load matching.
package availability

import (
	"log/slog"

	"hoslink/internal/availability/service"
)

type (
	Service   = service.Service
	Projector = service.Projector
)

// NewProjector constructs the projection write side. It is built before the HOS
// engine, which drives it.
func NewProjector(rows service.Store, logger *slog.Logger) *Projector {
	return service.NewProjector(rows, logger)
}

// NewService constructs the query side over the same store.
func NewService(rows service.Store, uow service.UnitOfWork, hos service.HOSEngine, drivers service.DriverDirectory, opts ...service.Option) (*Service, error) {
	return service.New(rows, uow, hos, drivers, opts...)
}
