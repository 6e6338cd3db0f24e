// Package store persists HOS history. Stores are pure I/O; validation and the
// choice of current record live in the engine and models.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/platform/sentinel"
	txcontext "hoslink/pkg/platform/tx"
)

// InMemoryRecordStore keeps append-only history per driver in insertion order.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[domain.DriverID][]*models.HOSRecord
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[domain.DriverID][]*models.HOSRecord)}
}

// Append stores a copy of rec. Inside a unit of work the append is undone on rollback.
func (s *InMemoryRecordStore) Append(ctx context.Context, rec *models.HOSRecord) error {
	cp := *rec
	s.mu.Lock()
	s.records[rec.DriverID] = append(s.records[rec.DriverID], &cp)
	s.mu.Unlock()

	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.records[cp.DriverID]
		for i := len(list) - 1; i >= 0; i-- {
			if list[i] == &cp {
				s.records[cp.DriverID] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	})
	return nil
}

// Latest returns the record with the greatest RecordedAt; ties go to the later append.
func (s *InMemoryRecordStore) Latest(_ context.Context, driverID domain.DriverID) (*models.HOSRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.HOSRecord
	for _, r := range s.records[driverID] {
		if latest == nil || r.Supersedes(latest.RecordedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// History returns records with from <= RecordedAt <= to, newest first.
func (s *InMemoryRecordStore) History(_ context.Context, driverID domain.DriverID, from, to time.Time) ([]*models.HOSRecord, error) {
	s.mu.RLock()
	list := s.records[driverID]
	out := make([]*models.HOSRecord, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		r := list[i]
		if r.RecordedAt.Before(from) || r.RecordedAt.After(to) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out, nil
}
