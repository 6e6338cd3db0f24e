package models

import (
	"math"
	"strings"
	"time"

	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	pstrings "hoslink/pkg/platform/strings"
)

const (
	maxNameLength = 128
	MaxScore      = 100.0
)

// Driver is a registered driver and the dispatch preferences the availability
// projection is seeded from.
//
// Invariants:
//   - ID is a valid opaque driver id
//   - Endorsements are trimmed, upper-cased and unique
//   - MaxDistanceMiles >= 0 (0 means no limit)
//   - Score is within [0, MaxScore]
//   - a driver with DeletedAt set is inactive and never reactivated
type Driver struct {
	ID               domain.DriverID `json:"id"`
	Name             string          `json:"name"`
	Endorsements     []string        `json:"endorsements"`
	MaxDistanceMiles float64         `json:"max_distance_miles"`
	Score            float64         `json:"score"`
	CreatedAt        time.Time       `json:"created_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

func (d *Driver) IsActive() bool {
	return d.DeletedAt == nil
}

// Registration is the input to register a driver.
type Registration struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Endorsements     []string `json:"endorsements"`
	MaxDistanceMiles float64  `json:"max_distance_miles"`
}

// NewDriver validates a registration into a driver created at now.
func NewDriver(reg Registration, now time.Time) (*Driver, error) {
	id, err := domain.ParseDriverID(reg.ID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(reg.Name)
	if len(name) > maxNameLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "name must be at most %d characters", maxNameLength)
	}
	if reg.MaxDistanceMiles < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "max_distance_miles must not be negative")
	}
	endorsements := pstrings.DedupeAndTrimUpper(reg.Endorsements)
	if endorsements == nil {
		endorsements = []string{}
	}
	return &Driver{
		ID:               id,
		Name:             name,
		Endorsements:     endorsements,
		MaxDistanceMiles: reg.MaxDistanceMiles,
		CreatedAt:        now,
	}, nil
}

// ValidateScore rejects scores outside [0, MaxScore].
func ValidateScore(score float64) error {
	if score < 0 || score > MaxScore || math.IsNaN(score) {
		return dErrors.Newf(dErrors.CodeValidation, "score must be within [0, %v]", MaxScore)
	}
	return nil
}
