// Package models holds the availability read model and its query types.
//
// DriverAvailability is a projection. HOS-derived fields follow the latest accepted
// HOSRecord; the location follows whichever of the HOS record or an explicit
// position update is newer. The window and preferences are owned by the projection
// itself and survive a rebuild.
package models

import (
	"time"

	drivermodels "hoslink/internal/drivers/models"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/geo"
)

type DriverAvailability struct {
	DriverID                domain.DriverID  `json:"driver_id"`
	Status                  hosmodels.Status `json:"status"`
	DrivingMinutesRemaining int              `json:"driving_minutes_remaining"`
	DutyMinutesRemaining    int              `json:"duty_minutes_remaining"`
	CycleMinutesRemaining   int              `json:"cycle_minutes_remaining"`
	Location                *geo.Point       `json:"location,omitempty"`
	LocationUpdatedAt       *time.Time       `json:"location_updated_at,omitempty"`
	HOSRecordedAt           *time.Time       `json:"hos_recorded_at,omitempty"`
	AvailableFrom           *time.Time       `json:"available_from,omitempty"`
	AvailableUntil          *time.Time       `json:"available_until,omitempty"`
	MaxDistanceMiles        float64          `json:"max_distance_miles"`
	Endorsements            []string         `json:"endorsements"`
	UpdatedAt               time.Time        `json:"updated_at"`

	// DistanceMiles is set on proximity query results only.
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
}

// New returns an empty projection row for a driver with no HOS yet.
func New(id domain.DriverID, now time.Time) *DriverAvailability {
	return &DriverAvailability{
		DriverID:     id,
		Status:       hosmodels.StatusOffDuty,
		Endorsements: []string{},
		UpdatedAt:    now,
	}
}

// ApplyDriver copies dispatch preferences from the directory.
func (a *DriverAvailability) ApplyDriver(d *drivermodels.Driver, now time.Time) {
	a.Endorsements = append([]string{}, d.Endorsements...)
	a.MaxDistanceMiles = d.MaxDistanceMiles
	a.UpdatedAt = now
}

// ApplyHOS folds rec into the row. It returns false, leaving the row unchanged, when
// rec is older than the record already applied.
func (a *DriverAvailability) ApplyHOS(rec *hosmodels.HOSRecord, now time.Time) bool {
	if a.HOSRecordedAt != nil && !rec.Supersedes(*a.HOSRecordedAt) {
		return false
	}
	at := rec.RecordedAt
	a.Status = rec.Status
	a.DrivingMinutesRemaining = rec.DrivingMinutesRemaining
	a.DutyMinutesRemaining = rec.DutyMinutesRemaining
	a.CycleMinutesRemaining = rec.CycleMinutesRemaining
	a.HOSRecordedAt = &at
	if a.LocationUpdatedAt == nil || at.After(*a.LocationUpdatedAt) {
		loc := rec.Location
		a.Location = &loc
		a.LocationUpdatedAt = &at
	}
	a.UpdatedAt = now
	return true
}

// ApplyLocation sets an explicit position observed at at. Older positions are ignored.
func (a *DriverAvailability) ApplyLocation(p geo.Point, at, now time.Time) bool {
	if a.LocationUpdatedAt != nil && at.Before(*a.LocationUpdatedAt) {
		return false
	}
	a.Location = &p
	a.LocationUpdatedAt = &at
	a.UpdatedAt = now
	return true
}

// ApplyWindow replaces the availability window and distance preference.
func (a *DriverAvailability) ApplyWindow(w Window, now time.Time) {
	a.AvailableFrom = w.From
	a.AvailableUntil = w.Until
	if w.MaxDistanceMiles != nil {
		a.MaxDistanceMiles = *w.MaxDistanceMiles
	}
	a.UpdatedAt = now
}

// ResetHOS clears HOS-derived fields ahead of a rebuild.
func (a *DriverAvailability) ResetHOS() {
	a.Status = hosmodels.StatusOffDuty
	a.DrivingMinutesRemaining = 0
	a.DutyMinutesRemaining = 0
	a.CycleMinutesRemaining = 0
	a.HOSRecordedAt = nil
}

// OpenAt reports whether t falls inside the window. Open ends are unbounded.
func (a *DriverAvailability) OpenAt(t time.Time) bool {
	if a.AvailableFrom != nil && t.Before(*a.AvailableFrom) {
		return false
	}
	if a.AvailableUntil != nil && t.After(*a.AvailableUntil) {
		return false
	}
	return true
}

func (a *DriverAvailability) Clone() *DriverAvailability {
	cp := *a
	cp.Endorsements = append([]string{}, a.Endorsements...)
	cp.Location = clonePtr(a.Location)
	cp.LocationUpdatedAt = clonePtr(a.LocationUpdatedAt)
	cp.HOSRecordedAt = clonePtr(a.HOSRecordedAt)
	cp.AvailableFrom = clonePtr(a.AvailableFrom)
	cp.AvailableUntil = clonePtr(a.AvailableUntil)
	cp.DistanceMiles = clonePtr(a.DistanceMiles)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Window is an availability window update. Nil bounds are open.
type Window struct {
	From             *time.Time `json:"available_from,omitempty"`
	Until            *time.Time `json:"available_until,omitempty"`
	MaxDistanceMiles *float64   `json:"max_distance_miles,omitempty"`
}
