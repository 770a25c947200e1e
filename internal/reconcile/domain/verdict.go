package reconcile

import "math"

// Verdict classifies a measured discrepancy against a tolerance policy.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictWarning Verdict = "WARNING"
	VerdictFail    Verdict = "FAIL"
)

const (
	// DefaultMeterDiscrepancyPercent is the electronic-vs-mechanical threshold
	// for a single nozzle over a shift.
	DefaultMeterDiscrepancyPercent = 0.5
	// ThreeWayTolerancePercent is the fixed tolerance for a single three-way
	// tank reading event. Much tighter than the shift-level thresholds because
	// it compares instantaneous readings of the same physical quantity.
	ThreeWayTolerancePercent = 0.03
	// TankVariancePassPercent and TankVarianceWarnPercent bound the
	// nozzle-total vs tank-movement variance for a full shift. A shift
	// aggregates many nozzles, so more noise is tolerated here.
	TankVariancePassPercent = 0.5
	TankVarianceWarnPercent = 1.0
	// SegmentCrossCheckLiters is the tolerance for the segmented-sales vs
	// formula-sales cross-check.
	SegmentCrossCheckLiters = 1.0
)

// DiscrepancyBand classifies a nozzle meter discrepancy for display.
type DiscrepancyBand string

const (
	BandAcceptable DiscrepancyBand = "ACCEPTABLE"
	BandWarning    DiscrepancyBand = "WARNING"
	BandError      DiscrepancyBand = "ERROR"
)

// PairDiscrepancyPercent returns the symmetric percentage difference between
// two non-negative values, relative to their average. Defined as 0 when both
// values are zero.
func PairDiscrepancyPercent(a, b float64) float64 {
	avg := (a + b) / 2
	if avg == 0 {
		return 0
	}
	return math.Abs(a-b) / avg * 100
}

// TankVarianceVerdict classifies an absolute variance percentage for a full
// shift reconciliation.
func TankVarianceVerdict(variancePercent float64) Verdict {
	abs := math.Abs(variancePercent)
	switch {
	case abs <= TankVariancePassPercent:
		return VerdictPass
	case abs <= TankVarianceWarnPercent:
		return VerdictWarning
	default:
		return VerdictFail
	}
}

// BandFor classifies a nozzle discrepancy percentage against a threshold.
// The warning band runs to twice the threshold; beyond that is an error.
func BandFor(discrepancyPercent, threshold float64) DiscrepancyBand {
	switch {
	case discrepancyPercent <= threshold:
		return BandAcceptable
	case discrepancyPercent <= 2*threshold:
		return BandWarning
	default:
		return BandError
	}
}

func validVolume(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
