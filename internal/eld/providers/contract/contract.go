// Package contract is the shared behavioural suite every ELD adapter test runs
// against a fake vendor server.
package contract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoslink/internal/eld/providers"
	"hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/geo"
)

// Fixture is the canonical snapshot the fake vendor serves.
type Fixture struct {
	RawStatus string
	Driving   int
	Duty      int
	Cycle     int
	Location  geo.Point
	Since     time.Time
}

// Mode selects the fake server behaviour.
type Mode int32

const (
	ModeOK Mode = iota
	ModeMalformed
	ModeSlow
	ModeStatus
)

// Suite describes one adapter under test.
type Suite struct {
	Vendor string
	// Render produces the vendor JSON body for fx.
	Render func(driverID domain.DriverID, fx Fixture) any
	// Authorize checks vendor auth headers and path; false yields a 401.
	Authorize func(r *http.Request, driverID domain.DriverID) bool
	// NewProvider builds the adapter against baseURL.
	NewProvider func(t *testing.T, baseURL string) providers.Provider
}

type fakeVendor struct {
	suite    Suite
	driverID domain.DriverID
	fixture  atomic.Value
	mode     atomic.Int32
	status   atomic.Int32
	server   *httptest.Server
}

func (s Suite) start(t *testing.T, driverID domain.DriverID, fx Fixture) *fakeVendor {
	t.Helper()
	f := &fakeVendor{suite: s, driverID: driverID}
	f.fixture.Store(fx)
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeVendor) serve(w http.ResponseWriter, r *http.Request) {
	if !f.suite.Authorize(r, f.driverID) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch Mode(f.mode.Load()) {
	case ModeMalformed:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"truncated":`))
	case ModeSlow:
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	case ModeStatus:
		w.WriteHeader(int(f.status.Load()))
	default:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.suite.Render(f.driverID, f.fixture.Load().(Fixture)))
	}
}

func (f *fakeVendor) respondWith(code int) {
	f.mode.Store(int32(ModeStatus))
	f.status.Store(int32(code))
}

// Run executes the contract.
func (s Suite) Run(t *testing.T) {
	const driverID domain.DriverID = "DRV-1001"
	base := Fixture{
		RawStatus: "DRIVING",
		Driving:   312,
		Duty:      498,
		Cycle:     2210,
		Location:  geo.Point{Latitude: 41.8781, Longitude: -87.6298},
		Since:     time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC),
	}

	t.Run("returns canonical record", func(t *testing.T) {
		fake := s.start(t, driverID, base)
		p := s.NewProvider(t, fake.server.URL)
		assert.Equal(t, s.Vendor, p.Vendor())

		rec, err := p.GetDriverHOS(context.Background(), driverID, "dev-7")
		require.NoError(t, err)
		assert.Equal(t, driverID, rec.DriverID)
		assert.Equal(t, models.StatusDriving, rec.Status)
		assert.Equal(t, base.Driving, rec.DrivingMinutesRemaining)
		assert.Equal(t, base.Duty, rec.DutyMinutesRemaining)
		assert.Equal(t, base.Cycle, rec.CycleMinutesRemaining)
		assert.InDelta(t, base.Location.Latitude, rec.Location.Latitude, 1e-9)
		assert.InDelta(t, base.Location.Longitude, rec.Location.Longitude, 1e-9)
		assert.True(t, base.Since.Equal(rec.StatusSince))
		assert.Empty(t, rec.ID, "engine assigns ids")
		assert.True(t, rec.RecordedAt.IsZero(), "engine stamps recorded_at")
	})

	t.Run("maps vendor status vocabulary", func(t *testing.T) {
		cases := map[string]models.Status{
			"driving":         models.StatusDriving,
			"ON_DUTY":         models.StatusOnDuty,
			"onDuty":          models.StatusOnDuty,
			"sleeper berth":   models.StatusSleeperBerth,
			"Off Duty":        models.StatusOffDuty,
			"personal_convey": models.StatusOffDuty,
		}
		fake := s.start(t, driverID, base)
		p := s.NewProvider(t, fake.server.URL)
		for raw, want := range cases {
			fx := base
			fx.RawStatus = raw
			fake.fixture.Store(fx)
			rec, err := p.GetDriverHOS(context.Background(), driverID, "")
			require.NoError(t, err, raw)
			assert.Equal(t, want, rec.Status, raw)
		}
	})

	t.Run("clamps budgets above the ceiling", func(t *testing.T) {
		fx := base
		fx.Driving, fx.Duty, fx.Cycle = 700, 900, 4000
		fake := s.start(t, driverID, fx)
		rec, err := s.NewProvider(t, fake.server.URL).GetDriverHOS(context.Background(), driverID, "")
		require.NoError(t, err)
		assert.Equal(t, models.MaxDrivingMinutes, rec.DrivingMinutesRemaining)
		assert.Equal(t, models.MaxDutyMinutes, rec.DutyMinutesRemaining)
		assert.Equal(t, models.MaxCycleMinutes, rec.CycleMinutesRemaining)
	})

	t.Run("negative budget is bad data", func(t *testing.T) {
		fx := base
		fx.Cycle = -10
		fake := s.start(t, driverID, fx)
		_, err := s.NewProvider(t, fake.server.URL).GetDriverHOS(context.Background(), driverID, "")
		assertCategory(t, err, s.Vendor, providers.ErrorBadData, false)
	})

	errorCases := []struct {
		name      string
		code      int
		category  providers.ErrorCategory
		retryable bool
	}{
		{"not found", http.StatusNotFound, providers.ErrorNotFound, false},
		{"forbidden", http.StatusForbidden, providers.ErrorAuthentication, false},
		{"rate limited", http.StatusTooManyRequests, providers.ErrorRateLimited, true},
		{"vendor outage", http.StatusBadGateway, providers.ErrorProviderOutage, true},
		{"unexpected status", http.StatusConflict, providers.ErrorContractMismatch, false},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			fake := s.start(t, driverID, base)
			fake.respondWith(tc.code)
			_, err := s.NewProvider(t, fake.server.URL).GetDriverHOS(context.Background(), driverID, "")
			assertCategory(t, err, s.Vendor, tc.category, tc.retryable)
		})
	}

	t.Run("malformed body is bad data", func(t *testing.T) {
		fake := s.start(t, driverID, base)
		fake.mode.Store(int32(ModeMalformed))
		_, err := s.NewProvider(t, fake.server.URL).GetDriverHOS(context.Background(), driverID, "")
		assertCategory(t, err, s.Vendor, providers.ErrorBadData, false)
	})

	t.Run("deadline yields timeout", func(t *testing.T) {
		fake := s.start(t, driverID, base)
		fake.mode.Store(int32(ModeSlow))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := s.NewProvider(t, fake.server.URL).GetDriverHOS(ctx, driverID, "")
		assertCategory(t, err, s.Vendor, providers.ErrorTimeout, true)
	})
}

func assertCategory(t *testing.T, err error, vendor string, category providers.ErrorCategory, retryable bool) {
	t.Helper()
	require.Error(t, err)
	var pe *providers.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, vendor, pe.Vendor)
	assert.Equal(t, category, pe.Category)
	assert.Equal(t, retryable, pe.Retryable)
}
