package reconcile

import (
	"math"
	"sort"
	"time"
)

// DataSource records which measurement path produced the tank-level movement
// figure. When no post-delivery dip sample exists the engine reports the
// plain dip delta instead of fabricating a delivery-adjusted figure.
type DataSource string

const (
	SourceDipOnly          DataSource = "dip_only"
	SourceDeliveryAdjusted DataSource = "delivery_adjusted"
)

// Delivery is a fuel drop into a tank within a shift window. Deliveries are
// ordered, append-only events; they partition the shift into N+1 segments.
type Delivery struct {
	At       time.Time
	Liters   float64
	Supplier string
}

// DipSample is a tank level measurement at a point in the shift, in liters.
type DipSample struct {
	At     time.Time
	Liters float64
}

// SalesSegment is a delivery-bounded sub-interval of a shift within which the
// tank level only falls. LevelRise marks a mid-segment rise, which is a data
// error to surface, never to net against sales.
type SalesSegment struct {
	Start       time.Time
	End         time.Time
	StartLiters float64
	EndLiters   float64
	SalesLiters float64
	LevelRise   bool
}

// SegmentCrossCheck compares formula sales (opening/closing dip plus total
// delivered, ignoring segment boundaries) against the sum of segment sales.
// A mismatch beyond SegmentCrossCheckLiters is advisory: delivery data may be
// incomplete without invalidating the whole reconciliation.
type SegmentCrossCheck struct {
	FormulaSalesLiters float64
	SegmentTotalLiters float64
	DeltaLiters        float64
	Mismatch           bool
}

// TankShiftInput gathers everything the engine needs for one tank over one
// shift. Dip volumes are already converted from centimeters by the caller.
type TankShiftInput struct {
	TankID           string
	ShiftStart       time.Time
	ShiftEnd         time.Time
	OpeningDipLiters *float64
	ClosingDipLiters *float64
	// ClosingDipAt is when the closing dip was taken. Zero means end of
	// shift, which is after any mid-shift delivery.
	ClosingDipAt time.Time
	Deliveries   []Delivery
	DipSamples   []DipSample
	Nozzles      []NozzleDispenseResult
}

// TankShiftReconciliation is the verdict for one tank over one shift.
type TankShiftReconciliation struct {
	TankID               string
	OpeningDipLiters     float64
	ClosingDipLiters     float64
	Deliveries           []Delivery
	TotalDeliveredLiters float64
	TankVolumeMovement   float64
	NozzleTotalLiters    float64
	VarianceLiters       float64
	VariancePercent      float64
	Verdict              Verdict
	DataSource           DataSource

	// ExcludedNozzles are invalid nozzle results left out of the total. An
	// incomplete reconciliation is reported, never silently treated as
	// complete.
	ExcludedNozzles []NozzleDispenseResult
	Segments        []SalesSegment
	SegmentCheck    *SegmentCrossCheck
}

// Complete reports whether every nozzle result entered the aggregate.
func (r TankShiftReconciliation) Complete() bool { return len(r.ExcludedNozzles) == 0 }

// ReconcileTankShift cross-checks the bottom-up nozzle sum against the
// top-down tank-level movement for one shift.
//
// Missing dip readings are fatal: there is no meaningful partial
// reconciliation without them. Invalid nozzle results degrade the aggregate
// and are reported in ExcludedNozzles. When deliveries occurred and dip
// samples were taken at the delivery boundaries the shift is additionally
// partitioned into drawdown segments and cross-checked against the formula
// sales figure.
func ReconcileTankShift(input TankShiftInput) (TankShiftReconciliation, error) {
	if input.TankID == "" {
		return TankShiftReconciliation{}, ErrEmptyTankID
	}
	if input.OpeningDipLiters == nil || input.ClosingDipLiters == nil {
		return TankShiftReconciliation{}, ErrMissingTankReading
	}
	opening := *input.OpeningDipLiters
	closing := *input.ClosingDipLiters
	if !validVolume(opening) || !validVolume(closing) {
		return TankShiftReconciliation{}, ErrInvalidReading
	}

	result := TankShiftReconciliation{
		TankID:           input.TankID,
		OpeningDipLiters: opening,
		ClosingDipLiters: closing,
		Deliveries:       sortedDeliveries(input.Deliveries),
	}
	for _, d := range result.Deliveries {
		result.TotalDeliveredLiters += d.Liters
	}

	result.DataSource = resolveDataSource(input)
	if result.DataSource == SourceDeliveryAdjusted {
		// The level rises at the drop then falls as the tank is drawn
		// down, so the dip delta alone understates the shift.
		result.TankVolumeMovement = (closing - opening) + result.TotalDeliveredLiters
	} else {
		result.TankVolumeMovement = opening - closing
	}

	result.NozzleTotalLiters, result.ExcludedNozzles = sumNozzleVolumes(input.Nozzles)

	result.VarianceLiters = result.NozzleTotalLiters - result.TankVolumeMovement
	if result.TankVolumeMovement != 0 {
		result.VariancePercent = result.VarianceLiters / result.TankVolumeMovement * 100
		result.Verdict = TankVarianceVerdict(result.VariancePercent)
	} else if result.VarianceLiters == 0 {
		result.Verdict = VerdictPass
	} else {
		// No measured movement but nozzles report sales: the percentage
		// is undefined and the discrepancy absolute.
		result.Verdict = VerdictFail
	}

	if result.DataSource == SourceDeliveryAdjusted && len(input.DipSamples) > 0 {
		segments, err := SegmentShift(input.ShiftStart, input.ShiftEnd, result.Deliveries, input.DipSamples)
		if err == nil {
			result.Segments = segments
			formula := (opening - closing) + result.TotalDeliveredLiters
			check := CrossCheckSegments(segments, formula)
			result.SegmentCheck = &check
		}
	}

	return result, nil
}

// SegmentShift partitions a shift timeline at delivery boundaries and
// computes per-segment sales from dip samples. Sales in a segment are
// start level minus end level; levels only fall within a segment by
// construction, so a rise is flagged on the segment.
//
// Every segment needs a dip sample at or after its start and at or before
// its end; otherwise ErrMissingTankReading is returned.
func SegmentShift(shiftStart, shiftEnd time.Time, deliveries []Delivery, samples []DipSample) ([]SalesSegment, error) {
	if !shiftEnd.After(shiftStart) {
		return nil, ErrInvalidReading
	}
	ordered := sortedDeliveries(deliveries)
	sortedSamples := append([]DipSample(nil), samples...)
	sort.Slice(sortedSamples, func(i, j int) bool { return sortedSamples[i].At.Before(sortedSamples[j].At) })

	bounds := make([]time.Time, 0, len(ordered)+2)
	bounds = append(bounds, shiftStart)
	for _, d := range ordered {
		bounds = append(bounds, d.At)
	}
	bounds = append(bounds, shiftEnd)

	segments := make([]SalesSegment, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		inWindow := samplesInWindow(sortedSamples, bounds[i], bounds[i+1])
		if len(inWindow) < 2 {
			return nil, ErrMissingTankReading
		}
		segment := SalesSegment{
			Start:       bounds[i],
			End:         bounds[i+1],
			StartLiters: inWindow[0].Liters,
			EndLiters:   inWindow[len(inWindow)-1].Liters,
		}
		segment.SalesLiters = segment.StartLiters - segment.EndLiters
		for j := 1; j < len(inWindow); j++ {
			if inWindow[j].Liters > inWindow[j-1].Liters {
				segment.LevelRise = true
				break
			}
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

// CrossCheckSegments verifies that segmented sales round-trip to the formula
// sales figure within SegmentCrossCheckLiters.
func CrossCheckSegments(segments []SalesSegment, formulaSalesLiters float64) SegmentCrossCheck {
	check := SegmentCrossCheck{FormulaSalesLiters: formulaSalesLiters}
	for _, segment := range segments {
		check.SegmentTotalLiters += segment.SalesLiters
	}
	check.DeltaLiters = check.FormulaSalesLiters - check.SegmentTotalLiters
	check.Mismatch = math.Abs(check.DeltaLiters) > SegmentCrossCheckLiters
	return check
}

// sumNozzleVolumes sums valid electronic volumes in nozzle-id order so that
// repeated calls with identical inputs are bit-identical regardless of
// arrival order.
func sumNozzleVolumes(nozzles []NozzleDispenseResult) (float64, []NozzleDispenseResult) {
	ordered := append([]NozzleDispenseResult(nil), nozzles...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].NozzleID < ordered[j].NozzleID })

	var total float64
	var excluded []NozzleDispenseResult
	for _, nozzle := range ordered {
		if !nozzle.Valid {
			excluded = append(excluded, nozzle)
			continue
		}
		total += nozzle.ElectronicVolume
	}
	return total, excluded
}

func sortedDeliveries(deliveries []Delivery) []Delivery {
	ordered := append([]Delivery(nil), deliveries...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].At.Before(ordered[j].At) })
	return ordered
}

func samplesInWindow(samples []DipSample, start, end time.Time) []DipSample {
	var result []DipSample
	for _, sample := range samples {
		if sample.At.Before(start) || sample.At.After(end) {
			continue
		}
		result = append(result, sample)
	}
	return result
}

func resolveDataSource(input TankShiftInput) DataSource {
	if len(input.Deliveries) == 0 {
		return SourceDipOnly
	}
	if input.ClosingDipAt.IsZero() {
		return SourceDeliveryAdjusted
	}
	last := input.Deliveries[0].At
	for _, d := range input.Deliveries {
		if d.At.After(last) {
			last = d.At
		}
	}
	if input.ClosingDipAt.Before(last) {
		// Closing dip predates the last delivery: adjusting it by the
		// delivered volume would fabricate a figure nobody measured.
		return SourceDipOnly
	}
	return SourceDeliveryAdjusted
}
