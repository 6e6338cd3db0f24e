// Package domain holds identifier primitives shared across modules.
//
// External identifiers (driver, vehicle, ELD log) come from vendor systems with
// their own formats, so they are opaque strings rather than UUIDs. Construct them
// via the Parse* functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"strings"
	"unicode/utf8"

	dErrors "hoslink/pkg/domain-errors"
)

const maxIDLength = 64

// DriverID identifies a driver across the platform.
type DriverID string

// VehicleID identifies a tractor/unit as reported by an ELD vendor.
type VehicleID string

// EldLogID identifies a vendor log entry backing an HOS snapshot.
type EldLogID string

func (id DriverID) String() string  { return string(id) }
func (id VehicleID) String() string { return string(id) }
func (id EldLogID) String() string  { return string(id) }

// IsNil reports whether the id is empty.
func (id DriverID) IsNil() bool { return id == "" }

// ParseDriverID validates a driver identifier.
func ParseDriverID(s string) (DriverID, error) {
	v, err := parseOpaqueID("driver_id", s)
	return DriverID(v), err
}

// ParseVehicleID validates a vehicle identifier.
func ParseVehicleID(s string) (VehicleID, error) {
	v, err := parseOpaqueID("vehicle_id", s)
	return VehicleID(v), err
}

// ParseEldLogID validates an ELD log identifier.
func ParseEldLogID(s string) (EldLogID, error) {
	v, err := parseOpaqueID("eld_log_id", s)
	return EldLogID(v), err
}

// parseOpaqueID accepts 1..64 characters from [A-Za-z0-9._:-].
func parseOpaqueID(field, s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	if !utf8.ValidString(s) || len(s) > maxIDLength {
		return "", dErrors.Newf(dErrors.CodeValidation, "%s is malformed", field)
	}
	for _, r := range s {
		if !isIDRune(r) {
			return "", dErrors.Newf(dErrors.CodeValidation, "%s contains invalid character %q", field, r)
		}
	}
	return s, nil
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':':
		return true
	}
	return false
}
