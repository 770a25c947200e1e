package reconcile

// ThreeWayReading compares the three independent measurements of one tank
// reading event: the mechanical meter, the electronic meter, and the
// dip-derived volume. All values are liters.
type ThreeWayReading struct {
	MechanicalLiters float64
	ElectronicLiters float64
	DipLiters        float64

	DiscMechElec   float64
	DiscMechDip    float64
	DiscElecDip    float64
	MaxDiscrepancy float64

	TolerancePercent float64
	Verdict          Verdict
}

// ValidateThreeWay computes pairwise discrepancy percentages for one reading
// event and classifies the maximum against the tolerance. Tolerance values
// <= 0 fall back to ThreeWayTolerancePercent. Non-finite or negative volumes
// are rejected with ErrInvalidReading.
func ValidateThreeWay(mechanical, electronic, dip, tolerancePercent float64) (ThreeWayReading, error) {
	if tolerancePercent <= 0 {
		tolerancePercent = ThreeWayTolerancePercent
	}
	if !validVolume(mechanical) || !validVolume(electronic) || !validVolume(dip) {
		return ThreeWayReading{}, ErrInvalidReading
	}

	reading := ThreeWayReading{
		MechanicalLiters: mechanical,
		ElectronicLiters: electronic,
		DipLiters:        dip,
		DiscMechElec:     PairDiscrepancyPercent(mechanical, electronic),
		DiscMechDip:      PairDiscrepancyPercent(mechanical, dip),
		DiscElecDip:      PairDiscrepancyPercent(electronic, dip),
		TolerancePercent: tolerancePercent,
	}
	reading.MaxDiscrepancy = max3(reading.DiscMechElec, reading.DiscMechDip, reading.DiscElecDip)

	reading.Verdict = VerdictFail
	if reading.MaxDiscrepancy <= tolerancePercent {
		reading.Verdict = VerdictPass
	}
	return reading, nil
}

func max3(a, b, c float64) float64 {
	result := a
	if b > result {
		result = b
	}
	if c > result {
		result = c
	}
	return result
}
