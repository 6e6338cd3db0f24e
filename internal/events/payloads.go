package events

import (
	"time"

	"hoslink/internal/hos/models"
)

// Location is a coordinate in event payloads; pointers distinguish missing values.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// HOSData is the HOS sub-object shared by ELD_DATA_RECEIVED and DRIVER_HOS_UPDATED.
type HOSData struct {
	Status                  string     `json:"status"`
	DrivingMinutesRemaining *int       `json:"driving_minutes_remaining"`
	DutyMinutesRemaining    *int       `json:"duty_minutes_remaining"`
	CycleMinutesRemaining   *int       `json:"cycle_minutes_remaining"`
	StatusSince             *time.Time `json:"status_since,omitempty"`
	EldLogID                string     `json:"eld_log_id,omitempty"`
	Location                *Location  `json:"location,omitempty"`
}

// Complete reports whether every required HOS field is present.
func (h *HOSData) Complete() bool {
	return h != nil && h.Status != "" &&
		h.DrivingMinutesRemaining != nil && h.DutyMinutesRemaining != nil && h.CycleMinutesRemaining != nil
}

// HOSDataFromRecord renders a record as an HOS sub-object.
func HOSDataFromRecord(r *models.HOSRecord) HOSData {
	driving, duty, cycle := r.DrivingMinutesRemaining, r.DutyMinutesRemaining, r.CycleMinutesRemaining
	lat, lon := r.Location.Latitude, r.Location.Longitude
	since := r.StatusSince
	return HOSData{
		Status:                  string(r.Status),
		DrivingMinutesRemaining: &driving,
		DutyMinutesRemaining:    &duty,
		CycleMinutesRemaining:   &cycle,
		StatusSince:             &since,
		EldLogID:                r.EldLogID.String(),
		Location:                &Location{Latitude: &lat, Longitude: &lon},
	}
}

type ELDDataReceivedPayload struct {
	DriverID  string   `json:"driver_id"`
	VehicleID string   `json:"vehicle_id,omitempty"`
	HOSData   *HOSData `json:"hos_data"`
}

// PositionUpdatedPayload carries a generic entity position.
type PositionUpdatedPayload struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// EntityTypeDriver is the position entity type the location consumer applies.
const EntityTypeDriver = "DRIVER"

type DriverCreatedPayload struct {
	DriverID         string    `json:"driver_id"`
	Name             string    `json:"name"`
	Endorsements     []string  `json:"endorsements"`
	MaxDistanceMiles float64   `json:"max_distance_miles"`
	CreatedAt        time.Time `json:"created_at"`
}

type DriverStatusChangedPayload struct {
	DriverID       string    `json:"driver_id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	ChangedAt      time.Time `json:"changed_at"`
}

type DriverHOSUpdatedPayload struct {
	DriverID   string    `json:"driver_id"`
	RecordID   string    `json:"record_id"`
	VehicleID  string    `json:"vehicle_id,omitempty"`
	HOSData    HOSData   `json:"hos_data"`
	RecordedAt time.Time `json:"recorded_at"`
}

type DriverLocationUpdatedPayload struct {
	DriverID  string    `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DriverAvailabilityChangedPayload struct {
	DriverID         string     `json:"driver_id"`
	AvailableFrom    *time.Time `json:"available_from,omitempty"`
	AvailableUntil   *time.Time `json:"available_until,omitempty"`
	MaxDistanceMiles float64    `json:"max_distance_miles"`
}

type DriverScoreUpdatedPayload struct {
	DriverID      string  `json:"driver_id"`
	PreviousScore float64 `json:"previous_score"`
	Score         float64 `json:"score"`
}

type DriverDeletedPayload struct {
	DriverID  string    `json:"driver_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
