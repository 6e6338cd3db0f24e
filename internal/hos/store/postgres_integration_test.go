//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hoslink/internal/hos/models"
	"hoslink/internal/hos/store"
	"hoslink/internal/platform/postgres"
	"hoslink/internal/platform/unitofwork"
	"hoslink/pkg/geo"
	"hoslink/pkg/platform/sentinel"
	"hoslink/pkg/testutil/containers"
)

type PostgresRecordStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresRecordStore
}

func TestPostgresRecordStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRecordStoreSuite))
}

func (s *PostgresRecordStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresRecordStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "driver_availability", "hos_records", "drivers"))
	_, err := s.postgres.DB.ExecContext(ctx, `INSERT INTO drivers (id, created_at) VALUES ('D1', now())`)
	s.Require().NoError(err)
}

func record(at time.Time, driving int) *models.HOSRecord {
	return &models.HOSRecord{
		ID:                      uuid.NewString(),
		DriverID:                "D1",
		Status:                  models.StatusOnDuty,
		StatusSince:             at.Add(-time.Hour),
		DrivingMinutesRemaining: driving,
		DutyMinutesRemaining:    700,
		CycleMinutesRemaining:   3000,
		Location:                geo.Point{Latitude: 39.7, Longitude: -104.9},
		VehicleID:               "T-12",
		RecordedAt:              at,
	}
}

func (s *PostgresRecordStoreSuite) TestAppendAndLatest() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.store.Latest(ctx, "D1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	newer := record(now, 300)
	s.Require().NoError(s.store.Append(ctx, newer))
	s.Require().NoError(s.store.Append(ctx, record(now.Add(-time.Hour), 120)))

	latest, err := s.store.Latest(ctx, "D1")
	s.Require().NoError(err)
	s.Equal(newer.ID, latest.ID)
	s.Equal(300, latest.DrivingMinutesRemaining)
	s.Equal("T-12", latest.VehicleID.String())
	s.Empty(latest.EldLogID)
	s.True(newer.RecordedAt.Equal(latest.RecordedAt))
}

func (s *PostgresRecordStoreSuite) TestHistoryRangeInclusive() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	for i := range 4 {
		s.Require().NoError(s.store.Append(ctx, record(now.Add(-time.Duration(i)*time.Hour), 100+i)))
	}

	got, err := s.store.History(ctx, "D1", now.Add(-2*time.Hour), now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(101, got[0].DrivingMinutesRemaining)
	s.Equal(102, got[1].DrivingMinutesRemaining)
}

func (s *PostgresRecordStoreSuite) TestCheckConstraintRejectsOutOfRange() {
	err := s.store.Append(context.Background(), record(time.Now().UTC(), 661))
	s.Require().Error(err)
}

func (s *PostgresRecordStoreSuite) TestUnitOfWorkRollback() {
	ctx := context.Background()
	uow := unitofwork.NewPostgres(postgres.NewTxRunner(s.postgres.DB))

	err := uow.Do(ctx, "D1", func(ctx context.Context) error {
		if err := s.store.Append(ctx, record(time.Now().UTC(), 200)); err != nil {
			return err
		}
		return context.DeadlineExceeded
	})
	s.Require().Error(err)

	_, err = s.store.Latest(ctx, "D1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
