package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hoslink/internal/drivers/models"
	"hoslink/internal/drivers/store"
	"hoslink/internal/events"
	"hoslink/internal/platform/unitofwork"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/requestcontext"
)

type fakeProjection struct {
	seeded  []domain.DriverID
	removed []domain.DriverID
	err     error
}

func (p *fakeProjection) Seed(_ context.Context, d *models.Driver) error {
	if p.err != nil {
		return p.err
	}
	p.seeded = append(p.seeded, d.ID)
	return nil
}

func (p *fakeProjection) Remove(_ context.Context, id domain.DriverID) error {
	if p.err != nil {
		return p.err
	}
	p.removed = append(p.removed, id)
	return nil
}

type recordingProducer struct {
	created []events.DriverCreatedPayload
	scores  []events.DriverScoreUpdatedPayload
	deleted []events.DriverDeletedPayload
}

func (r *recordingProducer) DriverCreated(_ context.Context, p events.DriverCreatedPayload) error {
	r.created = append(r.created, p)
	return nil
}

func (r *recordingProducer) DriverScoreUpdated(_ context.Context, p events.DriverScoreUpdatedPayload) error {
	r.scores = append(r.scores, p)
	return nil
}

func (r *recordingProducer) DriverDeleted(_ context.Context, p events.DriverDeletedPayload) error {
	r.deleted = append(r.deleted, p)
	return nil
}

type DriverServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	projection *fakeProjection
	producer   *recordingProducer
	service    *Service
	ctx        context.Context
	now        time.Time
}

func TestDriverServiceSuite(t *testing.T) {
	suite.Run(t, new(DriverServiceSuite))
}

func (s *DriverServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.projection = &fakeProjection{}
	s.producer = &recordingProducer{}
	s.now = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	svc, err := New(s.store, s.projection, unitofwork.NewMemory(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithProducer(s.producer),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *DriverServiceSuite) TestNew() {
	_, err := New(nil, s.projection, unitofwork.NewMemory())
	s.ErrorContains(err, "driver store is required")
}

func (s *DriverServiceSuite) TestRegister() {
	s.Run("seeds projection and emits DRIVER_CREATED", func() {
		d, err := s.service.Register(s.ctx, models.Registration{ID: "D1", Name: "Ana", Endorsements: []string{"h"}})
		s.Require().NoError(err)
		s.Equal(s.now, d.CreatedAt)
		s.Equal([]domain.DriverID{"D1"}, s.projection.seeded)
		s.Require().Len(s.producer.created, 1)
		s.Equal([]string{"H"}, s.producer.created[0].Endorsements)
	})

	s.Run("duplicate is a conflict", func() {
		_, err := s.service.Register(s.ctx, models.Registration{ID: "D1"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Len(s.producer.created, 1)
	})

	s.Run("invalid id", func() {
		_, err := s.service.Register(s.ctx, models.Registration{ID: ""})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *DriverServiceSuite) TestRegister_ProjectionFailureRollsBack() {
	s.projection.err = errors.New("boom")
	_, err := s.service.Register(s.ctx, models.Registration{ID: "D2"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	exists, err := s.service.Exists(s.ctx, "D2")
	s.Require().NoError(err)
	s.False(exists)
	s.Empty(s.producer.created)
}

func (s *DriverServiceSuite) TestUpdateScore() {
	_, err := s.service.Register(s.ctx, models.Registration{ID: "D1"})
	s.Require().NoError(err)

	d, err := s.service.UpdateScore(s.ctx, "D1", 72.5)
	s.Require().NoError(err)
	s.Equal(72.5, d.Score)
	s.Require().Len(s.producer.scores, 1)
	s.Equal(events.DriverScoreUpdatedPayload{DriverID: "D1", PreviousScore: 0, Score: 72.5}, s.producer.scores[0])

	_, err = s.service.UpdateScore(s.ctx, "D1", 101)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.UpdateScore(s.ctx, "ghost", 50)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DriverServiceSuite) TestDelete() {
	_, err := s.service.Register(s.ctx, models.Registration{ID: "D1"})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, "D1"))
	s.Equal([]domain.DriverID{"D1"}, s.projection.removed)
	s.Require().Len(s.producer.deleted, 1)
	s.Equal(s.now, s.producer.deleted[0].DeletedAt)

	exists, err := s.service.Exists(s.ctx, "D1")
	s.Require().NoError(err)
	s.False(exists)

	_, err = s.service.Get(s.ctx, "D1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Delete(s.ctx, "D1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
