package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoslink/internal/hos/models"
	"hoslink/internal/hos/store"
	"hoslink/internal/platform/unitofwork"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
	"hoslink/pkg/requestcontext"
)

// racingDirectory starts a delete of the driver the first time it is asked
// whether the driver exists, then gives the delete time to run.
type racingDirectory struct {
	uow        *unitofwork.Memory
	projection *fakeProjection

	mu      sync.Mutex
	deleted bool
	once    sync.Once
	// applied is how many records the projection held when the delete ran.
	applied chan int
}

func (d *racingDirectory) Exists(_ context.Context, id domain.DriverID) (bool, error) {
	d.mu.Lock()
	deleted := d.deleted
	d.mu.Unlock()
	if deleted {
		return false, nil
	}

	d.once.Do(func() {
		go func() {
			_ = d.uow.Do(context.Background(), id.String(), func(context.Context) error {
				d.mu.Lock()
				d.deleted = true
				d.mu.Unlock()
				d.projection.mu.Lock()
				n := len(d.projection.applied)
				d.projection.applied = nil
				d.projection.mu.Unlock()
				d.applied <- n
				return nil
			})
		}()
		time.Sleep(50 * time.Millisecond)
	})
	return true, nil
}

func TestRecordUpdate_DeleteIsSerialisedWithInFlightUpdate(t *testing.T) {
	uow := unitofwork.NewMemory()
	projection := &fakeProjection{}
	directory := &racingDirectory{uow: uow, projection: projection, applied: make(chan int, 1)}

	engine, err := New(store.NewInMemoryRecordStore(), directory, projection, uow,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))
	loc := geo.Point{Latitude: 41.88, Longitude: -87.63}
	candidate := models.Candidate{
		Status:                  models.StatusDriving,
		DrivingMinutesRemaining: 300,
		DutyMinutesRemaining:    500,
		CycleMinutesRemaining:   2000,
		Location:                &loc,
	}

	_, err = engine.RecordUpdate(ctx, "D1", candidate)
	require.NoError(t, err)

	select {
	case n := <-directory.applied:
		assert.Equal(t, 1, n, "delete must run after the update committed, not between check and write")
	case <-time.After(5 * time.Second):
		t.Fatal("delete never ran")
	}
	projection.mu.Lock()
	assert.Empty(t, projection.applied, "deleted driver keeps no projection row")
	projection.mu.Unlock()

	_, err = engine.RecordUpdate(ctx, "D1", candidate)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
