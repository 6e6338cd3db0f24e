// Package store persists the driver directory.
package store

import (
	"context"
	"sync"
	"time"

	"hoslink/internal/drivers/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/platform/sentinel"
	txcontext "hoslink/pkg/platform/tx"
)

// InMemoryStore keeps drivers in a map. Writes inside a unit of work are undone on rollback.
type InMemoryStore struct {
	mu      sync.RWMutex
	drivers map[domain.DriverID]*models.Driver
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{drivers: make(map[domain.DriverID]*models.Driver)}
}

// Create inserts d. An existing id, deleted or not, is a conflict.
func (s *InMemoryStore) Create(ctx context.Context, d *models.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drivers[d.ID]; ok {
		return sentinel.ErrConflict
	}
	s.drivers[d.ID] = clone(d)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		delete(s.drivers, d.ID)
		s.mu.Unlock()
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.DriverID) (*models.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(d), nil
}

func (s *InMemoryStore) UpdateScore(ctx context.Context, id domain.DriverID, score float64) error {
	return s.mutate(ctx, id, func(d *models.Driver) { d.Score = score })
}

// SoftDelete marks an active driver deleted at at.
func (s *InMemoryStore) SoftDelete(ctx context.Context, id domain.DriverID, at time.Time) error {
	return s.mutate(ctx, id, func(d *models.Driver) { d.DeletedAt = &at })
}

func (s *InMemoryStore) mutate(ctx context.Context, id domain.DriverID, fn func(*models.Driver)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok || !d.IsActive() {
		return sentinel.ErrNotFound
	}
	before := clone(d)
	fn(d)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		s.drivers[id] = before
		s.mu.Unlock()
	})
	return nil
}

func clone(d *models.Driver) *models.Driver {
	cp := *d
	cp.Endorsements = append([]string(nil), d.Endorsements...)
	if d.DeletedAt != nil {
		at := *d.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}
