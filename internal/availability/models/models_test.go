package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drivermodels "hoslink/internal/drivers/models"
	hosmodels "hoslink/internal/hos/models"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
)

var (
	t0      = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	chicago = geo.Point{Latitude: 41.8781, Longitude: -87.6298}
	gary    = geo.Point{Latitude: 41.5934, Longitude: -87.3464}
	denver  = geo.Point{Latitude: 39.7392, Longitude: -104.9903}
)

func rec(at time.Time, status hosmodels.Status, driving int, loc geo.Point) *hosmodels.HOSRecord {
	return &hosmodels.HOSRecord{
		DriverID:                "D1",
		Status:                  status,
		StatusSince:             at,
		DrivingMinutesRemaining: driving,
		DutyMinutesRemaining:    600,
		CycleMinutesRemaining:   3000,
		Location:                loc,
		RecordedAt:              at,
	}
}

func TestApplyHOS(t *testing.T) {
	a := New("D1", t0)
	require.True(t, a.ApplyHOS(rec(t0, hosmodels.StatusDriving, 300, chicago), t0))
	assert.Equal(t, hosmodels.StatusDriving, a.Status)
	assert.Equal(t, chicago, *a.Location)

	t.Run("older record ignored", func(t *testing.T) {
		assert.False(t, a.ApplyHOS(rec(t0.Add(-time.Minute), hosmodels.StatusOffDuty, 600, denver), t0))
		assert.Equal(t, 300, a.DrivingMinutesRemaining)
	})

	t.Run("equal timestamp supersedes", func(t *testing.T) {
		assert.True(t, a.ApplyHOS(rec(t0, hosmodels.StatusOnDuty, 290, chicago), t0))
		assert.Equal(t, hosmodels.StatusOnDuty, a.Status)
	})

	t.Run("newer explicit position wins over hos location", func(t *testing.T) {
		require.True(t, a.ApplyLocation(gary, t0.Add(10*time.Minute), t0))
		require.True(t, a.ApplyHOS(rec(t0.Add(5*time.Minute), hosmodels.StatusDriving, 280, denver), t0))
		assert.Equal(t, 280, a.DrivingMinutesRemaining)
		assert.Equal(t, gary, *a.Location)

		require.True(t, a.ApplyHOS(rec(t0.Add(20*time.Minute), hosmodels.StatusDriving, 270, denver), t0))
		assert.Equal(t, denver, *a.Location)
	})
}

func TestApplyLocation_IgnoresOlder(t *testing.T) {
	a := New("D1", t0)
	require.True(t, a.ApplyLocation(chicago, t0, t0))
	assert.False(t, a.ApplyLocation(denver, t0.Add(-time.Second), t0))
	assert.Equal(t, chicago, *a.Location)
}

func TestRebuildHelpers(t *testing.T) {
	a := New("D1", t0)
	a.ApplyHOS(rec(t0, hosmodels.StatusDriving, 300, chicago), t0)
	a.ResetHOS()
	assert.Equal(t, hosmodels.StatusOffDuty, a.Status)
	assert.Nil(t, a.HOSRecordedAt)
	assert.NotNil(t, a.Location, "location survives a reset")

	a.ApplyDriver(&drivermodels.Driver{ID: "D1", Endorsements: []string{"H"}, MaxDistanceMiles: 50}, t0)
	assert.Equal(t, []string{"H"}, a.Endorsements)
	assert.Equal(t, 50.0, a.MaxDistanceMiles)
}

func TestCriteria(t *testing.T) {
	a := New("D1", t0)
	a.ApplyHOS(rec(t0, hosmodels.StatusOnDuty, 300, chicago), t0)
	a.Endorsements = []string{"H", "N"}
	until := t0.Add(4 * time.Hour)
	a.AvailableUntil = &until

	cases := []struct {
		name string
		c    Criteria
		want bool
	}{
		{"empty criteria match everything", Criteria{}, true},
		{"status in set", Criteria{Statuses: []hosmodels.Status{hosmodels.StatusDriving, hosmodels.StatusOnDuty}}, true},
		{"status not in set", Criteria{Statuses: []hosmodels.Status{hosmodels.StatusOffDuty}}, false},
		{"enough driving", Criteria{MinDrivingMinutes: 300}, true},
		{"not enough driving", Criteria{MinDrivingMinutes: 301}, false},
		{"endorsement subset", Criteria{Endorsements: []string{"N"}}, true},
		{"missing endorsement", Criteria{Endorsements: []string{"T"}}, false},
		{"within radius", Criteria{Near: &gary, RadiusMiles: 30}, true},
		{"outside radius", Criteria{Near: &denver, RadiusMiles: 30}, false},
		{"inside window", Criteria{AvailableAt: &t0}, true},
		{"after window", Criteria{AvailableAt: ptr(t0.Add(5 * time.Hour))}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := tc.c.Normalize()
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Matches(a))
		})
	}
}

func TestCriteriaNormalize(t *testing.T) {
	_, err := Criteria{Statuses: []hosmodels.Status{"NAPPING"}}.Normalize()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = Criteria{Near: &chicago}.Normalize()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "radius required with a point")

	c, err := Criteria{Endorsements: []string{" h", "H"}}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, []string{"H"}, c.Endorsements)
}

func TestLoadConstraints_ReportsEveryFailure(t *testing.T) {
	a := New("D1", t0)
	a.ApplyHOS(rec(t0, hosmodels.StatusOnDuty, 300, chicago), t0)
	a.Endorsements = []string{"H"}
	a.MaxDistanceMiles = 100
	from := t0.Add(2 * time.Hour)
	a.AvailableFrom = &from

	reasons := LoadConstraints(a, LoadDetails{
		PickupTime:           t0.Add(time.Hour),
		Pickup:               &denver,
		RequiredEndorsements: []string{"h", "n", "t"},
	})
	require.Len(t, reasons, 3)
	assert.Contains(t, reasons[0], "outside the driver's availability window")
	assert.Equal(t, "Missing endorsements: N, T", reasons[1])
	assert.Contains(t, reasons[2], "beyond the driver's limit of 100.0 miles")

	assert.Empty(t, LoadConstraints(a, LoadDetails{PickupTime: t0.Add(3 * time.Hour), Pickup: &gary}))
}

func TestLoadDetailsValidate(t *testing.T) {
	assert.Error(t, LoadDetails{EstimatedDrivingMinutes: -1, PickupTime: t0}.Validate())
	assert.Error(t, LoadDetails{}.Validate())
	assert.NoError(t, LoadDetails{PickupTime: t0}.Validate())
}

func ptr[T any](v T) *T { return &v }
