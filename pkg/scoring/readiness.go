package scoring

import (
	"github.com/pagegrade/pagegrade/pkg/audit"
)

// State is how far an audit run has progressed.
type State string

const (
	StateEmpty            State = "empty"
	StateSeoReady         State = "seo_ready"
	StatePerformanceReady State = "performance_ready"
	StateSecurityReady    State = "security_ready"
	StateDesignPending    State = "design_pending"
	StateComplete         State = "complete"
)

// Progress is the set of payload kinds received for a run.
type Progress uint8

func kindBit(kind audit.PayloadKind) Progress {
	for i, k := range audit.PayloadKinds() {
		if k == kind {
			return 1 << i
		}
	}
	return 0
}

// ProgressOf returns the payload set present on run.
func ProgressOf(run *audit.Run) Progress {
	var p Progress
	if run == nil {
		return p
	}
	for _, k := range audit.PayloadKinds() {
		if run.Has(k) {
			p |= kindBit(k)
		}
	}
	return p
}

// ProgressFrom builds a payload set from a list of kinds.
func ProgressFrom(kinds ...audit.PayloadKind) Progress {
	var p Progress
	for _, k := range kinds {
		p |= kindBit(k)
	}
	return p
}

// Has reports whether kind was received.
func (p Progress) Has(kind audit.PayloadKind) bool {
	bit := kindBit(kind)
	return bit != 0 && p&bit != 0
}

// With returns the set with kind added.
func (p Progress) With(kind audit.PayloadKind) Progress { return p | kindBit(kind) }

// State derives the readiness state. SEO results open the run; performance
// and security may follow in either order; the run is complete once both
// design reports are in.
func (p Progress) State() State {
	if !p.Has(audit.PayloadSEO) {
		return StateEmpty
	}
	perf, sec := p.Has(audit.PayloadPerformance), p.Has(audit.PayloadSecurity)
	switch {
	case perf && sec:
		if p.Has(audit.PayloadDesignCode) && p.Has(audit.PayloadDesignImage) {
			return StateComplete
		}
		return StateDesignPending
	case perf:
		return StatePerformanceReady
	case sec:
		return StateSecurityReady
	default:
		return StateSeoReady
	}
}

// Readiness derives the state of a run from the payloads it holds.
func Readiness(run *audit.Run) State { return ProgressOf(run).State() }

// Advance records the arrival of a payload and returns the new set and state.
// Receiving a payload twice does not change the state.
func Advance(p Progress, kind audit.PayloadKind) (Progress, State) {
	next := p.With(kind)
	return next, next.State()
}
