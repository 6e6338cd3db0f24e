package models

import (
	"context"
	"errors"
	"strings"

	"github.com/looplab/fsm"

	dErrors "hoslink/pkg/domain-errors"
)

// Status is the canonical duty status.
type Status string

const (
	StatusOffDuty      Status = "OFF_DUTY"
	StatusSleeperBerth Status = "SLEEPER_BERTH"
	StatusOnDuty       Status = "ON_DUTY"
	StatusDriving      Status = "DRIVING"
)

var allStatuses = []Status{StatusOffDuty, StatusSleeperBerth, StatusOnDuty, StatusDriving}

// AllStatuses returns the four duty statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOffDuty, StatusSleeperBerth, StatusOnDuty, StatusDriving:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts the canonical names, case-insensitively. Vendor vocabulary is
// mapped by the ELD adapters, not here.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unrecognized duty status %q", raw)
	}
	return s, nil
}

const reportPrefix = "report_"

// statusMachine models duty status as a complete graph: any status may follow any
// other because transitions are reported by the ELD, not decided here.
func statusMachine(current Status) *fsm.FSM {
	src := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		src[i] = string(s)
	}
	events := make(fsm.Events, 0, len(allStatuses))
	for _, dst := range allStatuses {
		events = append(events, fsm.EventDesc{Name: reportPrefix + string(dst), Src: src, Dst: string(dst)})
	}
	return fsm.NewFSM(string(current), events, fsm.Callbacks{})
}

// Transition applies a reported status to the current one and reports whether the
// status changed. It never rejects a sequence; only unknown statuses fail.
func Transition(ctx context.Context, from, to Status) (bool, error) {
	if !from.IsValid() {
		return false, dErrors.Newf(dErrors.CodeValidation, "unrecognized duty status %q", from)
	}
	if !to.IsValid() {
		return false, dErrors.Newf(dErrors.CodeValidation, "unrecognized duty status %q", to)
	}
	m := statusMachine(from)
	err := m.Event(ctx, reportPrefix+string(to))
	if err == nil {
		return true, nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return false, nil
	}
	return false, dErrors.Wrap(err, dErrors.CodeInternal, "duty status transition failed")
}
