package reconcile

// MeterPair is one channel of one nozzle over one shift. Closing is nil when
// the closing reading has not been entered or could not be parsed.
type MeterPair struct {
	Opening float64
	Closing *float64
}

// NozzleReading carries both meter channels for one nozzle.
type NozzleReading struct {
	NozzleID   string
	TankID     string
	Electronic MeterPair
	Mechanical MeterPair
}

// NozzleDispenseResult is the dispensed-volume computation for one nozzle.
// Invalid results carry their reason and contribute zero to aggregates, but
// are never dropped from the slice handed back to callers.
type NozzleDispenseResult struct {
	NozzleID           string
	TankID             string
	ElectronicVolume   float64
	MechanicalVolume   float64
	DiscrepancyPercent float64
	Band               DiscrepancyBand
	RequiresNote       bool
	Valid              bool
	Reason             error
}

// ComputeNozzleDispense computes per-channel dispensed volume and the
// electronic-vs-mechanical discrepancy for one nozzle.
//
// A missing closing reading yields an invalid result with zero volumes. A
// closing below its opening yields an invalid result carrying the negative
// volume as computed: clamping it to zero would hide a data-entry or
// equipment error. Threshold is a percentage; values <= 0 fall back to
// DefaultMeterDiscrepancyPercent.
func ComputeNozzleDispense(reading NozzleReading, threshold float64) NozzleDispenseResult {
	if threshold <= 0 {
		threshold = DefaultMeterDiscrepancyPercent
	}
	result := NozzleDispenseResult{NozzleID: reading.NozzleID, TankID: reading.TankID}

	if reading.Electronic.Closing == nil || reading.Mechanical.Closing == nil {
		result.Reason = ErrMissingReading
		return result
	}
	if !validVolume(reading.Electronic.Opening) || !validVolume(*reading.Electronic.Closing) ||
		!validVolume(reading.Mechanical.Opening) || !validVolume(*reading.Mechanical.Closing) {
		result.Reason = ErrInvalidReading
		return result
	}

	result.ElectronicVolume = *reading.Electronic.Closing - reading.Electronic.Opening
	result.MechanicalVolume = *reading.Mechanical.Closing - reading.Mechanical.Opening

	if result.ElectronicVolume < 0 || result.MechanicalVolume < 0 {
		result.Reason = ErrNegativeVolume
		return result
	}

	result.Valid = true
	result.DiscrepancyPercent = PairDiscrepancyPercent(result.ElectronicVolume, result.MechanicalVolume)
	result.Band = BandFor(result.DiscrepancyPercent, threshold)
	result.RequiresNote = result.DiscrepancyPercent > threshold
	return result
}

// NoMovement reports whether a valid result dispensed nothing on either
// channel. A zero average volume makes the discrepancy undefined (reported as
// 0), which callers should surface as "no movement" rather than "clean".
func (r NozzleDispenseResult) NoMovement() bool {
	return r.Valid && r.ElectronicVolume == 0 && r.MechanicalVolume == 0
}
