package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
)

// HOSRecord is an immutable snapshot of a driver's duty status and remaining budgets.
//
// Invariants:
//   - every budget is within [0, its maximum]
//   - StatusSince <= RecordedAt
//   - the current record for a driver is the one with the latest RecordedAt
type HOSRecord struct {
	ID                      string           `json:"id"`
	DriverID                domain.DriverID  `json:"driver_id"`
	Status                  Status           `json:"status"`
	StatusSince             time.Time        `json:"status_since"`
	DrivingMinutesRemaining int              `json:"driving_minutes_remaining"`
	DutyMinutesRemaining    int              `json:"duty_minutes_remaining"`
	CycleMinutesRemaining   int              `json:"cycle_minutes_remaining"`
	Location                geo.Point        `json:"location"`
	VehicleID               domain.VehicleID `json:"vehicle_id,omitempty"`
	EldLogID                domain.EldLogID  `json:"eld_log_id,omitempty"`
	RecordedAt              time.Time        `json:"recorded_at"`
}

// Candidate is a proposed HOS update before the engine accepts it.
// Optional fields are pointers or empty strings; the engine fills them in.
type Candidate struct {
	Status                  Status
	StatusSince             *time.Time
	DrivingMinutesRemaining int
	DutyMinutesRemaining    int
	CycleMinutesRemaining   int
	Location                *geo.Point
	VehicleID               domain.VehicleID
	EldLogID                domain.EldLogID
	// RecordedAt is the source observation time. Defaults to now.
	RecordedAt *time.Time
}

// Validate checks the fields that do not depend on the current record or clock.
// All failures are reported together.
func (c Candidate) Validate() error {
	var problems []string
	if !c.Status.IsValid() {
		problems = append(problems, fmt.Sprintf("unrecognized duty status %q", c.Status))
	}
	problems = appendRange(problems, BudgetDriving, c.DrivingMinutesRemaining)
	problems = appendRange(problems, BudgetDuty, c.DutyMinutesRemaining)
	problems = appendRange(problems, BudgetCycle, c.CycleMinutesRemaining)
	if c.Location != nil {
		if err := c.Location.Validate(); err != nil {
			problems = append(problems, messageOf(err))
		}
	}
	if len(problems) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(problems, "; "))
	}
	return nil
}

func appendRange(problems []string, b Budget, v int) []string {
	if v < 0 || v > b.Max() {
		return append(problems, fmt.Sprintf("%s_minutes_remaining %d out of range [0, %d]", b, v, b.Max()))
	}
	return problems
}

func messageOf(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// Build resolves a validated candidate against the driver's current record (nil when
// the driver has no history) into a new record stamped at now.
func (c Candidate) Build(id string, driverID domain.DriverID, current *HOSRecord, now time.Time) (*HOSRecord, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	recordedAt := now
	if c.RecordedAt != nil {
		recordedAt = c.RecordedAt.UTC()
		if recordedAt.After(now) {
			return nil, dErrors.New(dErrors.CodeValidation, "recorded_at is in the future")
		}
	}

	var location geo.Point
	switch {
	case c.Location != nil:
		location = *c.Location
	case current != nil:
		location = current.Location
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "location is required for a driver without HOS history")
	}

	statusSince := recordedAt
	switch {
	case c.StatusSince != nil:
		statusSince = c.StatusSince.UTC()
	case current != nil && current.Status == c.Status && !current.StatusSince.After(recordedAt):
		statusSince = current.StatusSince
	}
	if statusSince.After(recordedAt) {
		return nil, dErrors.New(dErrors.CodeValidation, "status_since is after recorded_at")
	}

	vehicle := c.VehicleID
	if vehicle == "" && current != nil {
		vehicle = current.VehicleID
	}

	return &HOSRecord{
		ID:                      id,
		DriverID:                driverID,
		Status:                  c.Status,
		StatusSince:             statusSince,
		DrivingMinutesRemaining: c.DrivingMinutesRemaining,
		DutyMinutesRemaining:    c.DutyMinutesRemaining,
		CycleMinutesRemaining:   c.CycleMinutesRemaining,
		Location:                location,
		VehicleID:               vehicle,
		EldLogID:                c.EldLogID,
		RecordedAt:              recordedAt,
	}, nil
}

// Candidate converts a record back into an update, used when a vendor snapshot is applied.
func (r *HOSRecord) Candidate() Candidate {
	loc := r.Location
	since := r.StatusSince
	c := Candidate{
		Status:                  r.Status,
		DrivingMinutesRemaining: r.DrivingMinutesRemaining,
		DutyMinutesRemaining:    r.DutyMinutesRemaining,
		CycleMinutesRemaining:   r.CycleMinutesRemaining,
		Location:                &loc,
		VehicleID:               r.VehicleID,
		EldLogID:                r.EldLogID,
	}
	if !since.IsZero() {
		c.StatusSince = &since
	}
	if !r.RecordedAt.IsZero() {
		at := r.RecordedAt
		c.RecordedAt = &at
	}
	return c
}

// Supersedes reports whether r should replace state derived from a record taken at
// at. Equal timestamps supersede so the later-applied record wins.
func (r *HOSRecord) Supersedes(at time.Time) bool {
	return !r.RecordedAt.Before(at)
}
