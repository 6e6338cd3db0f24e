// Package store persists the availability projection.
package store

import (
	"context"
	"sort"
	"sync"

	"hoslink/internal/availability/models"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/platform/sentinel"
	txcontext "hoslink/pkg/platform/tx"
)

// Filter is the subset of criteria a store can apply natively. The service applies
// the rest.
type Filter struct {
	Statuses          []hosmodels.Status
	MinDrivingMinutes int
}

// InMemoryStore holds one row per driver. Writes inside a unit of work are undone
// on rollback.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[domain.DriverID]*models.DriverAvailability
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[domain.DriverID]*models.DriverAvailability)}
}

func (s *InMemoryStore) Get(_ context.Context, id domain.DriverID) (*models.DriverAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return row.Clone(), nil
}

// Put inserts or replaces the row for a.DriverID.
func (s *InMemoryStore) Put(ctx context.Context, a *models.DriverAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, existed := s.rows[a.DriverID]
	s.rows[a.DriverID] = a.Clone()
	txcontext.OnRollback(ctx, func() { s.restore(a.DriverID, before, existed) })
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id domain.DriverID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, existed := s.rows[id]
	delete(s.rows, id)
	txcontext.OnRollback(ctx, func() { s.restore(id, before, existed) })
	return nil
}

func (s *InMemoryStore) restore(id domain.DriverID, row *models.DriverAvailability, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existed {
		s.rows[id] = row
		return
	}
	delete(s.rows, id)
}

// List returns rows matching f ordered by driver id.
func (s *InMemoryStore) List(_ context.Context, f Filter) ([]*models.DriverAvailability, error) {
	crit := models.Criteria{Statuses: f.Statuses, MinDrivingMinutes: f.MinDrivingMinutes}
	s.mu.RLock()
	out := make([]*models.DriverAvailability, 0, len(s.rows))
	for _, row := range s.rows {
		if crit.Matches(row) {
			out = append(out, row.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}
