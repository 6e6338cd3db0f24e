//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hoslink/internal/availability/models"
	"hoslink/internal/availability/store"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/pkg/geo"
	"hoslink/pkg/platform/sentinel"
	"hoslink/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "driver_availability", "hos_records", "drivers"))
	_, err := s.postgres.DB.ExecContext(ctx, `INSERT INTO drivers (id, created_at) VALUES ('D1', now()), ('D2', now())`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	row := models.New("D1", now)
	row.ApplyHOS(&hosmodels.HOSRecord{
		DriverID:                "D1",
		Status:                  hosmodels.StatusDriving,
		DrivingMinutesRemaining: 300,
		DutyMinutesRemaining:    500,
		CycleMinutesRemaining:   2000,
		Location:                geo.Point{Latitude: 39.7, Longitude: -104.9},
		RecordedAt:              now,
	}, now)
	row.Endorsements = []string{"H", "N"}
	s.Require().NoError(s.store.Put(ctx, row))

	got, err := s.store.Get(ctx, "D1")
	s.Require().NoError(err)
	s.Equal(hosmodels.StatusDriving, got.Status)
	s.Equal(300, got.DrivingMinutesRemaining)
	s.Equal(row.Location, got.Location)
	s.Equal([]string{"H", "N"}, got.Endorsements)
	s.Nil(got.AvailableFrom)

	row.DrivingMinutesRemaining = 100
	s.Require().NoError(s.store.Put(ctx, row))
	got, err = s.store.Get(ctx, "D1")
	s.Require().NoError(err)
	s.Equal(100, got.DrivingMinutesRemaining)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	now := time.Now().UTC()
	off := models.New("D1", now)
	driving := models.New("D2", now)
	driving.Status = hosmodels.StatusDriving
	driving.DrivingMinutesRemaining = 240
	s.Require().NoError(s.store.Put(ctx, off))
	s.Require().NoError(s.store.Put(ctx, driving))

	all, err := s.store.List(ctx, store.Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	rows, err := s.store.List(ctx, store.Filter{Statuses: []hosmodels.Status{hosmodels.StatusDriving}, MinDrivingMinutes: 200})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("D2", rows[0].DriverID.String())

	s.Require().NoError(s.store.Delete(ctx, "D2"))
	_, err = s.store.Get(ctx, "D2")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
