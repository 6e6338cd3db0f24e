package models

import (
	"fmt"
	"math"
	"time"
)

const (
	ViolationDriving = "Driving time limit exceeded"
	ViolationDuty    = "On-duty time limit exceeded"
	ViolationCycle   = "Cycle time limit exceeded"
)

// ComplianceResult lists exhausted budgets in driving, duty, cycle order.
type ComplianceResult struct {
	Compliant  bool     `json:"compliant"`
	Violations []string `json:"violations"`
	// Exhausted carries the budget names matching Violations, for metrics.
	Exhausted []Budget `json:"-"`
}

// Evaluate reports compliance for a record: compliant iff every budget is above zero.
func Evaluate(r *HOSRecord) ComplianceResult {
	res := ComplianceResult{Violations: []string{}}
	if r.DrivingMinutesRemaining <= 0 {
		res.Violations = append(res.Violations, ViolationDriving)
		res.Exhausted = append(res.Exhausted, BudgetDriving)
	}
	if r.DutyMinutesRemaining <= 0 {
		res.Violations = append(res.Violations, ViolationDuty)
		res.Exhausted = append(res.Exhausted, BudgetDuty)
	}
	if r.CycleMinutesRemaining <= 0 {
		res.Violations = append(res.Violations, ViolationCycle)
		res.Exhausted = append(res.Exhausted, BudgetCycle)
	}
	res.Compliant = len(res.Violations) == 0
	return res
}

// Prediction is a linear projection of remaining budgets at a point in time.
//
// It subtracts elapsed wall-clock minutes from every budget and floors at zero.
// Breaks, restarts and split sleeper periods are not modelled, so the result is an
// estimate for dispatch planning and never a legal determination.
type Prediction struct {
	At             time.Time `json:"at"`
	DrivingMinutes int       `json:"driving_minutes"`
	DutyMinutes    int       `json:"duty_minutes"`
	CycleMinutes   int       `json:"cycle_minutes"`
}

// Predict projects r to at. Times at or before now return the current budgets.
func Predict(r *HOSRecord, now, at time.Time) Prediction {
	elapsed := int(math.Floor(at.Sub(now).Minutes()))
	if elapsed < 0 {
		elapsed = 0
	}
	return Prediction{
		At:             at,
		DrivingMinutes: floorZero(r.DrivingMinutesRemaining - elapsed),
		DutyMinutes:    floorZero(r.DutyMinutesRemaining - elapsed),
		CycleMinutes:   floorZero(r.CycleMinutesRemaining - elapsed),
	}
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// LoadValidation is the outcome of a driving-hours sufficiency check.
type LoadValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateLoad checks that r has at least estimatedDrivingMinutes of driving left.
func ValidateLoad(r *HOSRecord, estimatedDrivingMinutes int) LoadValidation {
	if r.DrivingMinutesRemaining < estimatedDrivingMinutes {
		return LoadValidation{Reason: InsufficientDrivingReason(estimatedDrivingMinutes, r.DrivingMinutesRemaining)}
	}
	return LoadValidation{Valid: true}
}

// InsufficientDrivingReason formats the shortfall message.
func InsufficientDrivingReason(need, have int) string {
	return fmt.Sprintf("Insufficient driving hours: Need %d minutes, have %d minutes", need, have)
}
