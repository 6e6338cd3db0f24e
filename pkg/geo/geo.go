// Package geo provides coordinates and great-circle distance.
package geo

import (
	"math"

	dErrors "hoslink/pkg/domain-errors"
)

const (
	earthRadiusKm    = 6371.0
	earthRadiusMiles = 3958.8
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects coordinates outside [-90,90] x [-180,180] and NaN values.
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return dErrors.Newf(dErrors.CodeValidation, "latitude %v out of range [-90, 90]", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return dErrors.Newf(dErrors.CodeValidation, "longitude %v out of range [-180, 180]", p.Longitude)
	}
	return nil
}

// DistanceMiles returns the haversine distance between a and b in statute miles.
func DistanceMiles(a, b Point) float64 {
	return haversine(a, b) * earthRadiusMiles
}

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	return haversine(a, b) * earthRadiusKm
}

// haversine returns the central angle between a and b in radians.
func haversine(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

// Within reports whether b lies within radiusMiles of a.
func Within(a, b Point, radiusMiles float64) bool {
	return DistanceMiles(a, b) <= radiusMiles
}
