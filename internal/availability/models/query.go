package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	hosmodels "hoslink/internal/hos/models"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
	pstrings "hoslink/pkg/platform/strings"
)

// Criteria filters availability rows. Zero-valued fields are not filtered on.
type Criteria struct {
	Statuses          []hosmodels.Status `json:"statuses,omitempty"`
	MinDrivingMinutes int                `json:"min_driving_minutes,omitempty"`
	MinDutyMinutes    int                `json:"min_duty_minutes,omitempty"`
	MinCycleMinutes   int                `json:"min_cycle_minutes,omitempty"`
	Endorsements      []string           `json:"endorsements,omitempty"`
	Near              *geo.Point         `json:"near,omitempty"`
	RadiusMiles       float64            `json:"radius_miles,omitempty"`
	AvailableAt       *time.Time         `json:"available_at,omitempty"`
}

// Normalize validates the criteria and canonicalises endorsement codes.
func (c Criteria) Normalize() (Criteria, error) {
	for _, s := range c.Statuses {
		if !s.IsValid() {
			return c, dErrors.Newf(dErrors.CodeValidation, "unrecognized duty status %q", s)
		}
	}
	if c.MinDrivingMinutes < 0 || c.MinDutyMinutes < 0 || c.MinCycleMinutes < 0 {
		return c, dErrors.New(dErrors.CodeValidation, "minimum remaining minutes must not be negative")
	}
	if c.Near != nil {
		if err := c.Near.Validate(); err != nil {
			return c, err
		}
		if c.RadiusMiles <= 0 || math.IsNaN(c.RadiusMiles) {
			return c, dErrors.New(dErrors.CodeValidation, "radius_miles must be positive")
		}
	}
	c.Endorsements = pstrings.DedupeAndTrimUpper(c.Endorsements)
	return c, nil
}

// Matches reports whether a satisfies every specified criterion.
func (c Criteria) Matches(a *DriverAvailability) bool {
	if len(c.Statuses) > 0 && !containsStatus(c.Statuses, a.Status) {
		return false
	}
	if a.DrivingMinutesRemaining < c.MinDrivingMinutes ||
		a.DutyMinutesRemaining < c.MinDutyMinutes ||
		a.CycleMinutesRemaining < c.MinCycleMinutes {
		return false
	}
	if len(c.Endorsements) > 0 && !pstrings.ContainsAll(a.Endorsements, c.Endorsements) {
		return false
	}
	if c.Near != nil {
		if a.Location == nil || !geo.Within(*c.Near, *a.Location, c.RadiusMiles) {
			return false
		}
	}
	if c.AvailableAt != nil && !a.OpenAt(*c.AvailableAt) {
		return false
	}
	return true
}

func containsStatus(set []hosmodels.Status, s hosmodels.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// LoadDetails describes a load a driver is being considered for.
type LoadDetails struct {
	EstimatedDrivingMinutes int        `json:"estimated_driving_minutes"`
	PickupTime              time.Time  `json:"pickup_time"`
	Pickup                  *geo.Point `json:"pickup,omitempty"`
	RequiredEndorsements    []string   `json:"required_endorsements,omitempty"`
}

func (l LoadDetails) Validate() error {
	if l.EstimatedDrivingMinutes < 0 {
		return dErrors.New(dErrors.CodeValidation, "estimated_driving_minutes must not be negative")
	}
	if l.PickupTime.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "pickup_time is required")
	}
	if l.Pickup != nil {
		return l.Pickup.Validate()
	}
	return nil
}

// LoadCheck lists every failing constraint; Available is true iff Reasons is empty.
type LoadCheck struct {
	Available bool     `json:"available"`
	Reasons   []string `json:"reasons"`
}

// LoadConstraints evaluates the projection-owned constraints for a load: window,
// endorsements and pickup distance.
func LoadConstraints(a *DriverAvailability, load LoadDetails) []string {
	var reasons []string
	if !a.OpenAt(load.PickupTime) {
		reasons = append(reasons, fmt.Sprintf("Pickup time %s is outside the driver's availability window",
			load.PickupTime.UTC().Format(time.RFC3339)))
	}
	required := pstrings.DedupeAndTrimUpper(load.RequiredEndorsements)
	if missing := missingEndorsements(a.Endorsements, required); len(missing) > 0 {
		reasons = append(reasons, "Missing endorsements: "+strings.Join(missing, ", "))
	}
	if load.Pickup != nil && a.MaxDistanceMiles > 0 {
		switch {
		case a.Location == nil:
			reasons = append(reasons, "Driver location is unknown")
		default:
			d := geo.DistanceMiles(*a.Location, *load.Pickup)
			if d > a.MaxDistanceMiles {
				reasons = append(reasons, fmt.Sprintf("Pickup is %.1f miles away, beyond the driver's limit of %.1f miles",
					d, a.MaxDistanceMiles))
			}
		}
	}
	return reasons
}

func missingEndorsements(have, want []string) []string {
	var missing []string
	for _, w := range want {
		if !pstrings.ContainsAll(have, []string{w}) {
			missing = append(missing, w)
		}
	}
	return missing
}
