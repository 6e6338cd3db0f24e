package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hoslink/internal/availability/models"
	"hoslink/internal/availability/store"
	drivermodels "hoslink/internal/drivers/models"
	"hoslink/internal/events"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/internal/platform/unitofwork"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
	"hoslink/pkg/requestcontext"
)

var (
	chicago = geo.Point{Latitude: 41.8781, Longitude: -87.6298}
	gary    = geo.Point{Latitude: 41.5934, Longitude: -87.3464}
	joliet  = geo.Point{Latitude: 41.5250, Longitude: -88.0817}
	denver  = geo.Point{Latitude: 39.7392, Longitude: -104.9903}
)

// fakeHOS answers from a map of current records, using the model functions the
// real engine uses.
type fakeHOS struct {
	current map[domain.DriverID]*hosmodels.HOSRecord
}

func (f *fakeHOS) GetCurrent(_ context.Context, id domain.DriverID) (*hosmodels.HOSRecord, error) {
	rec, ok := f.current[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no HOS history")
	}
	return rec, nil
}

func (f *fakeHOS) CheckCompliance(ctx context.Context, id domain.DriverID) (*hosmodels.ComplianceResult, error) {
	rec, err := f.GetCurrent(ctx, id)
	if err != nil {
		return nil, err
	}
	res := hosmodels.Evaluate(rec)
	return &res, nil
}

func (f *fakeHOS) ValidateForLoad(ctx context.Context, id domain.DriverID, est int, _ time.Time) (*hosmodels.LoadValidation, error) {
	rec, err := f.GetCurrent(ctx, id)
	if err != nil {
		return nil, err
	}
	res := hosmodels.ValidateLoad(rec, est)
	return &res, nil
}

type fakeDirectory map[domain.DriverID]*drivermodels.Driver

func (f fakeDirectory) Get(_ context.Context, id domain.DriverID) (*drivermodels.Driver, error) {
	d, ok := f[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "driver not found")
	}
	return d, nil
}

type recordingProducer struct {
	locations []domain.DriverID
	windows   []events.DriverAvailabilityChangedPayload
}

func (r *recordingProducer) DriverLocationUpdated(_ context.Context, id domain.DriverID, _ geo.Point, _ time.Time) error {
	r.locations = append(r.locations, id)
	return nil
}

func (r *recordingProducer) DriverAvailabilityChanged(_ context.Context, p events.DriverAvailabilityChangedPayload) error {
	r.windows = append(r.windows, p)
	return errors.New("broker down")
}

type AvailabilitySuite struct {
	suite.Suite
	rows      *store.InMemoryStore
	projector *Projector
	hos       *fakeHOS
	directory fakeDirectory
	producer  *recordingProducer
	service   *Service
	now       time.Time
	ctx       context.Context
}

func TestAvailabilitySuite(t *testing.T) {
	suite.Run(t, new(AvailabilitySuite))
}

func (s *AvailabilitySuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.rows = store.NewInMemory()
	s.projector = NewProjector(s.rows, logger)
	s.hos = &fakeHOS{current: map[domain.DriverID]*hosmodels.HOSRecord{}}
	s.directory = fakeDirectory{}
	s.producer = &recordingProducer{}

	svc, err := New(s.rows, unitofwork.NewMemory(), s.hos, s.directory, WithLogger(logger), WithProducer(s.producer))
	s.Require().NoError(err)
	s.service = svc
}

// register seeds a driver and applies one HOS record the way the engine would.
func (s *AvailabilitySuite) register(id domain.DriverID, status hosmodels.Status, driving int, loc geo.Point, endorsements ...string) {
	d := &drivermodels.Driver{ID: id, Endorsements: endorsements, MaxDistanceMiles: 500, CreatedAt: s.now}
	s.directory[id] = d
	s.Require().NoError(s.projector.Seed(s.ctx, d))
	rec := &hosmodels.HOSRecord{
		ID:                      "rec-" + id.String(),
		DriverID:                id,
		Status:                  status,
		StatusSince:             s.now.Add(-time.Hour),
		DrivingMinutesRemaining: driving,
		DutyMinutesRemaining:    600,
		CycleMinutesRemaining:   3000,
		Location:                loc,
		RecordedAt:              s.now.Add(-time.Minute),
	}
	s.hos.current[id] = rec
	s.Require().NoError(s.projector.ApplyHOS(s.ctx, rec))
}

func ids(rows []*models.DriverAvailability) []domain.DriverID {
	out := make([]domain.DriverID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.DriverID)
	}
	return out
}

func (s *AvailabilitySuite) TestFindAvailable() {
	s.register("D1", hosmodels.StatusOnDuty, 300, chicago, "H")
	s.register("D2", hosmodels.StatusOffDuty, 600, denver)
	s.register("D3", hosmodels.StatusDriving, 60, gary, "H", "N")

	s.Run("no criteria returns every driver", func() {
		rows, err := s.service.FindAvailable(s.ctx, models.Criteria{})
		s.Require().NoError(err)
		s.Equal([]domain.DriverID{"D1", "D2", "D3"}, ids(rows))
	})

	s.Run("statuses and minimum hours", func() {
		rows, err := s.service.FindAvailable(s.ctx, models.Criteria{
			Statuses:          []hosmodels.Status{hosmodels.StatusOnDuty, hosmodels.StatusDriving},
			MinDrivingMinutes: 120,
		})
		s.Require().NoError(err)
		s.Equal([]domain.DriverID{"D1"}, ids(rows))
	})

	s.Run("endorsements", func() {
		rows, err := s.service.FindAvailable(s.ctx, models.Criteria{Endorsements: []string{"h"}})
		s.Require().NoError(err)
		s.Equal([]domain.DriverID{"D1", "D3"}, ids(rows))
	})

	s.Run("invalid criteria", func() {
		_, err := s.service.FindAvailable(s.ctx, models.Criteria{MinDrivingMinutes: -5})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AvailabilitySuite) TestFindNear() {
	s.register("D1", hosmodels.StatusOnDuty, 300, joliet)
	s.register("D2", hosmodels.StatusOffDuty, 600, denver)
	s.register("D3", hosmodels.StatusDriving, 60, gary)
	s.register("D0", hosmodels.StatusOnDuty, 60, chicago)

	s.Run("unsorted results keep id order", func() {
		rows, err := s.service.FindNear(s.ctx, chicago, 50)
		s.Require().NoError(err)
		s.Equal([]domain.DriverID{"D0", "D1", "D3"}, ids(rows))
		for _, r := range rows {
			s.Require().NotNil(r.DistanceMiles)
			s.LessOrEqual(*r.DistanceMiles, 50.0)
		}
	})

	s.Run("sorted by distance", func() {
		rows, err := s.service.FindNear(s.ctx, chicago, 50, SortedByDistance())
		s.Require().NoError(err)
		s.Equal([]domain.DriverID{"D0", "D3", "D1"}, ids(rows))
		s.InDelta(0, *rows[0].DistanceMiles, 0.001)
	})

	s.Run("status filter", func() {
		rows, err := s.service.FindNear(s.ctx, chicago, 50, WithStatuses(hosmodels.StatusDriving))
		s.Require().NoError(err)
		s.Equal([]domain.DriverID{"D3"}, ids(rows))
	})

	s.Run("non-positive radius", func() {
		_, err := s.service.FindNear(s.ctx, chicago, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AvailabilitySuite) TestCheckForLoad() {
	s.register("D1", hosmodels.StatusOnDuty, 120, chicago, "H")

	s.Run("reports every failing constraint", func() {
		res, err := s.service.CheckForLoad(s.ctx, "D1", models.LoadDetails{
			EstimatedDrivingMinutes: 180,
			PickupTime:              s.now.Add(time.Hour),
			Pickup:                  &denver,
			RequiredEndorsements:    []string{"T"},
		})
		s.Require().NoError(err)
		s.False(res.Available)
		s.Require().Len(res.Reasons, 3)
		s.Equal("Insufficient driving hours: Need 180 minutes, have 120 minutes", res.Reasons[0])
		s.Equal("Missing endorsements: T", res.Reasons[1])
		s.Contains(res.Reasons[2], "miles away")
	})

	s.Run("available load", func() {
		res, err := s.service.CheckForLoad(s.ctx, "D1", models.LoadDetails{
			EstimatedDrivingMinutes: 100,
			PickupTime:              s.now.Add(time.Hour),
			Pickup:                  &gary,
		})
		s.Require().NoError(err)
		s.True(res.Available)
		s.Empty(res.Reasons)
	})

	s.Run("driver without HOS", func() {
		d := &drivermodels.Driver{ID: "D2", Endorsements: []string{}}
		s.Require().NoError(s.projector.Seed(s.ctx, d))
		res, err := s.service.CheckForLoad(s.ctx, "D2", models.LoadDetails{PickupTime: s.now})
		s.Require().NoError(err)
		s.Equal([]string{NoHOSReason}, res.Reasons)
	})

	s.Run("unknown driver", func() {
		_, err := s.service.CheckForLoad(s.ctx, "ghost", models.LoadDetails{PickupTime: s.now})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AvailabilitySuite) TestUpdateLocation() {
	s.register("D1", hosmodels.StatusOnDuty, 300, chicago)

	row, err := s.service.UpdateLocation(s.ctx, "D1", gary, s.now)
	s.Require().NoError(err)
	s.Equal(gary, *row.Location)
	s.Equal([]domain.DriverID{"D1"}, s.producer.locations)

	row, err = s.service.UpdateLocation(s.ctx, "D1", denver, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(gary, *row.Location, "older position ignored")
	s.Len(s.producer.locations, 1)

	_, err = s.service.UpdateLocation(s.ctx, "ghost", gary, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.UpdateLocation(s.ctx, "D1", geo.Point{Latitude: 91}, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AvailabilitySuite) TestUpdateWindow() {
	s.register("D1", hosmodels.StatusOnDuty, 300, chicago)
	from, until := s.now.Add(time.Hour), s.now.Add(9*time.Hour)
	dist := 120.0

	row, err := s.service.UpdateWindow(s.ctx, "D1", models.Window{From: &from, Until: &until, MaxDistanceMiles: &dist})
	s.Require().NoError(err, "emit failure does not fail the update")
	s.Equal(120.0, row.MaxDistanceMiles)
	s.Require().Len(s.producer.windows, 1)
	s.Equal(&from, s.producer.windows[0].AvailableFrom)

	_, err = s.service.UpdateWindow(s.ctx, "D1", models.Window{From: &until, Until: &from})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AvailabilitySuite) TestRebuild() {
	s.register("D1", hosmodels.StatusOnDuty, 300, chicago, "H")
	from := s.now.Add(time.Hour)
	_, err := s.service.UpdateWindow(s.ctx, "D1", models.Window{From: &from})
	s.Require().NoError(err)

	s.Require().NoError(s.rows.Delete(s.ctx, "D1"))
	s.Require().NoError(s.projector.Seed(s.ctx, s.directory["D1"]))
	before, err := s.service.Get(s.ctx, "D1")
	s.Require().NoError(err)
	s.Equal(hosmodels.StatusOffDuty, before.Status)

	row, err := s.service.Rebuild(s.ctx, "D1")
	s.Require().NoError(err)
	s.Equal(hosmodels.StatusOnDuty, row.Status)
	s.Equal(300, row.DrivingMinutesRemaining)
	s.Equal([]string{"H"}, row.Endorsements)
	s.Equal(chicago, *row.Location)

	_, err = s.service.Rebuild(s.ctx, "ghost")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
