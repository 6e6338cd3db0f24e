package models

// Remaining-minute ceilings for the three budgets.
const (
	MaxDrivingMinutes = 660  // 11h driving
	MaxDutyMinutes    = 840  // 14h on-duty window
	MaxCycleMinutes   = 3600 // 60h cycle
)

// Budget names a minute budget.
type Budget string

const (
	BudgetDriving Budget = "driving"
	BudgetDuty    Budget = "duty"
	BudgetCycle   Budget = "cycle"
)

// Max returns the ceiling for b.
func (b Budget) Max() int {
	switch b {
	case BudgetDriving:
		return MaxDrivingMinutes
	case BudgetDuty:
		return MaxDutyMinutes
	case BudgetCycle:
		return MaxCycleMinutes
	default:
		return 0
	}
}

// ClampMinutes bounds a non-negative vendor value to the budget ceiling.
func ClampMinutes(b Budget, v int) int {
	if v > b.Max() {
		return b.Max()
	}
	return v
}
