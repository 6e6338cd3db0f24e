package providers

import (
	"fmt"
	"math"
	"time"

	"hoslink/internal/hos/models"
	"hoslink/pkg/geo"
)

// MinutesFromSeconds converts a vendor remaining-time value to whole minutes clamped
// to the budget ceiling. Negative values are bad data. Values past the ceiling,
// including "no limit" sentinels, clamp before any duration arithmetic.
func MinutesFromSeconds(vendor string, b models.Budget, seconds float64) (int, error) {
	if math.IsNaN(seconds) {
		return 0, NewProviderError(ErrorBadData, vendor, fmt.Sprintf("invalid %s time remaining", b), nil)
	}
	if seconds < 0 {
		return 0, negative(vendor, b)
	}
	if seconds >= float64(b.Max())*60 {
		return b.Max(), nil
	}
	return int(seconds / 60), nil
}

// MinutesFromMillis is MinutesFromSeconds for millisecond values.
func MinutesFromMillis(vendor string, b models.Budget, millis int64) (int, error) {
	if millis < 0 {
		return 0, negative(vendor, b)
	}
	if millis >= int64(b.Max())*60_000 {
		return b.Max(), nil
	}
	return int(millis / 60_000), nil
}

// ClampMinutes validates and clamps a value the vendor already reports in minutes.
func ClampMinutes(vendor string, b models.Budget, v int) (int, error) {
	if v < 0 {
		return 0, negative(vendor, b)
	}
	return models.ClampMinutes(b, v), nil
}

func negative(vendor string, b models.Budget) error {
	return NewProviderError(ErrorBadData, vendor, fmt.Sprintf("negative %s time remaining", b), nil)
}

// ParseLocation validates vendor coordinates.
func ParseLocation(vendor string, lat, lon float64) (geo.Point, error) {
	p := geo.Point{Latitude: lat, Longitude: lon}
	if err := p.Validate(); err != nil {
		return geo.Point{}, NewProviderError(ErrorBadData, vendor, "invalid vendor location", err)
	}
	return p, nil
}

// ParseTime parses an RFC 3339 vendor timestamp. Empty means unknown.
func ParseTime(vendor, field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, NewProviderError(ErrorBadData, vendor, "invalid "+field, err)
	}
	t = t.UTC()
	return &t, nil
}
